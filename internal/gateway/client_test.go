package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushflow/internal/config"
	"pushflow/internal/logger"
)

func TestReadyToTrip(t *testing.T) {
	tests := []struct {
		name        string
		ratio       float64
		minRequests uint32
		counts      gobreaker.Counts
		trip        bool
	}{
		{
			name:        "below minimum request volume",
			ratio:       0.5,
			minRequests: 10,
			counts:      gobreaker.Counts{Requests: 9, TotalFailures: 9},
			trip:        false,
		},
		{
			name:        "ratio reached at minimum volume",
			ratio:       0.5,
			minRequests: 10,
			counts:      gobreaker.Counts{Requests: 10, TotalFailures: 5},
			trip:        true,
		},
		{
			name:        "ratio below threshold",
			ratio:       0.5,
			minRequests: 10,
			counts:      gobreaker.Counts{Requests: 10, TotalFailures: 4},
			trip:        false,
		},
		{
			name:   "zero values fall back to defaults",
			ratio:  0,
			counts: gobreaker.Counts{Requests: 3, TotalFailures: 2},
			trip:   true,
		},
		{
			name:   "defaults require three requests",
			ratio:  0,
			counts: gobreaker.Counts{Requests: 2, TotalFailures: 2},
			trip:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := readyToTrip(tt.ratio, tt.minRequests)
			assert.Equal(t, tt.trip, trip(tt.counts))
		})
	}
}

func TestClientBreakerUsesConfiguredThreshold(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(
		config.GatewayConfig{BaseURL: srv.URL, Timeout: time.Second},
		config.CircuitBreakerConfig{
			Enabled:      true,
			FailureRatio: 1.0,
			MinRequests:  2,
			Interval:     time.Minute,
			Timeout:      time.Minute,
		},
		logger.NopLogger(),
	)

	ctx := context.Background()

	req := SendRequest{
		Subscriptions: []SubscriptionPayload{{Endpoint: "https://push/endpoint"}},
		Title:         "Sale",
		Body:          "Everything half off",
	}

	for i := 0; i < 2; i++ {
		_, err := client.Send(ctx, req)
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := client.Send(ctx, req)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
