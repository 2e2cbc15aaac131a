package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"https://collector.example/track", false},
		{"http://127.0.0.1:8080/api/location?tenant=t1", false},
		{"ftp://collector.example/track", true},
		{"collector.example/track", true},
		{"https:///track", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := AgentConfig{UserID: "u1", EndpointURL: tt.endpoint}.Normalize()
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, DefaultIntervalSeconds, got.IntervalSeconds)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			var ice *InvalidConfigError
			require.True(t, errors.As(err, &ice))
			assert.Equal(t, "endpoint_url", ice.Field)
		})
	}
}
