package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/apexmarkets/settingsync/internal/logger"
	"github.com/apexmarkets/settingsync/models"
)

// Beacon posts telemetry events to the Apex collector. Delivery is
// best-effort: each event is sent once from its own goroutine with a short
// timeout, failures are logged at debug level, and nothing is ever retried
// or allowed to block the caller.
type Beacon struct {
	client *resty.Client
	logger *logger.Logger
}

// NewBeacon constructs a Beacon for the collector at baseURL.
func NewBeacon(baseURL string, timeout time.Duration, log *logger.Logger) *Beacon {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)

	return &Beacon{client: cli, logger: log}
}

// Emit sends event without blocking the caller.
func (b *Beacon) Emit(event models.BeaconEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.client.GetClient().Timeout)
		defer cancel()

		_, err := b.client.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(event).
			Post("/api/telemetry/events")
		if err != nil {
			b.logger.Debug().Err(err).Str("kind", event.Kind).Msg("beacon delivery failed")
		}
	}()
}

// NopSink discards all events. Used where no collector is configured and
// in tests.
type NopSink struct{}

func (NopSink) Emit(models.BeaconEvent) {}
