package ports

import "github.com/ghalamif/TrackGate/internal/domain"

// ObserverSink receives a readout after every processed sample, in order, from a
// single goroutine per run. A slow sink loses readouts rather than delaying samples.
type ObserverSink interface {
	OnSampleProcessed(r domain.Readout)
}
