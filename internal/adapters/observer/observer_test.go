package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"

	"github.com/ghalamif/TrackGate/internal/domain"
)

func TestBoardKeepsNewestFirst(t *testing.T) {
	b := NewBoard(3)
	assert.Empty(t, b.Recent(5))

	for i := uint64(1); i <= 5; i++ {
		b.OnSampleProcessed(domain.Readout{Seq: i})
	}

	got := b.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, []uint64{5, 4, 3}, []uint64{got[0].Seq, got[1].Seq, got[2].Seq})

	top := b.Recent(1)
	require.Len(t, top, 1)
	assert.Equal(t, uint64(5), top[0].Seq)
}

func TestFanOutCallsEverySink(t *testing.T) {
	a, b := NewBoard(2), NewBoard(2)
	FanOut{a, nil, b}.OnSampleProcessed(domain.Readout{Seq: 7})

	assert.Equal(t, uint64(7), a.Recent(1)[0].Seq)
	assert.Equal(t, uint64(7), b.Recent(1)[0].Seq)
}

func TestLogReadout(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)
	l := NewLogReadout(zap.New(core))

	l.OnSampleProcessed(domain.Readout{
		RunID:     "r1",
		Seq:       2,
		Sample:    domain.Sample{Latitude: 25.03, Longitude: 121.56},
		Cadence:   domain.CadenceInfo{HasInterval: true, ActualIntervalSeconds: 31},
		Stats:     domain.UploadStats{SuccessCount: 1},
		Forwarded: true,
	})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "r1", ctx["run_id"])
	assert.Equal(t, 25.03, ctx["lat"])
	assert.Equal(t, 31.0, ctx["interval_seconds"])
	assert.Equal(t, true, ctx["forwarded"])
}
