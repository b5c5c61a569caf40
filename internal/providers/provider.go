// Package providers defines the outbound delivery port and selects the
// adapter implementation for a tenant's active configuration.
package providers

import (
	"context"
	"fmt"
	"net/http"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

// Message is a fully rendered notification ready to hand to a vendor.
type Message struct {
	To      string
	ToName  string
	Subject string
	Heading string
	Body    string
}

// SendResult reports vendor acceptance. Queued means the vendor accepted the
// message but confirms delivery asynchronously (SMS gateways do this); the
// delivery log entry stays queued until the status callback arrives.
type SendResult struct {
	ProviderMessageID string
	Queued            bool
}

// Adapter is implemented once per vendor. Send performs blocking I/O and
// returns a *providers.Error on vendor failure so callers can log the exact
// vendor message. TestConnection validates credentials without sending.
type Adapter interface {
	ID() string
	Channel() domain.Channel
	Send(ctx context.Context, msg Message) (SendResult, error)
	TestConnection(ctx context.Context) error
}

// Factory builds the adapter for an active config. Declared as a type so
// dispatch tests can substitute a fake.
type Factory func(cfg store.TenantProviderConfig) (Adapter, error)

// NewFactory returns the production factory. The provider identifier is
// branched on exactly once, here; every send afterwards goes through the
// Adapter interface.
func NewFactory(httpClient *http.Client) Factory {
	return func(cfg store.TenantProviderConfig) (Adapter, error) {
		switch cfg.Provider {
		case ProviderSendGrid:
			return newSendGrid(cfg, httpClient)
		case ProviderSMTP:
			return newSMTP(cfg)
		case ProviderTwilio:
			return newTwilio(cfg, httpClient)
		default:
			return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
		}
	}
}
