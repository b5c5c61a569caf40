// Package dispatch turns shipment lifecycle events into delivered
// notifications. Dispatch is synchronous, idempotent under upstream replay,
// and records every attempt in the delivery log.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"shipnotify/internal/domain"
	"shipnotify/internal/observability"
	"shipnotify/internal/providers"
	"shipnotify/internal/render"
	"shipnotify/internal/store"
)

type ConfigSource interface {
	GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error)
}

type TemplateSource interface {
	GetTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (store.NotificationTemplate, bool, error)
}

type DeliveryLog interface {
	Append(ctx context.Context, e store.DeliveryLogEntry) error
	ExistsSuccessful(ctx context.Context, shipmentID string, channel domain.Channel, eventStatus string) (bool, error)
}

type Dispatcher struct {
	Configs   ConfigSource
	Templates TemplateSource
	Log       DeliveryLog
	Adapters  providers.Factory

	// Optional protection around outbound provider calls.
	Limiter *rate.Limiter
	Breaker *gobreaker.CircuitBreaker

	// Base URL for customer-facing tracking links; the public reference
	// code is appended.
	TrackingBaseURL string

	ProviderTimeout time.Duration

	IDGen func() string
	Now   func() time.Time
}

const bodyLimit = 2000

// Dispatch sends at most one notification for the event on the channel and
// writes exactly one delivery log entry, except when the dedup check finds
// the notification was already delivered, in which case nothing is written.
// Provider failures never surface as errors; only the log store failing
// does, because at that point no audit trail can be guaranteed.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.NotificationEvent, channel domain.Channel) (domain.DispatchResult, error) {
	if err := event.Validate(); err != nil {
		return domain.DispatchResult{}, err
	}
	if !channel.Valid() {
		return domain.DispatchResult{}, fmt.Errorf("invalid channel %q", channel)
	}

	recipient := resolveRecipient(event, channel)
	if recipient == "" {
		return d.fail(ctx, event, channel, "", "", domain.ErrNoRecipient.Error())
	}

	// Idempotence under at-least-once upstream delivery: a replay of an
	// already-accepted (shipment, channel, status) writes nothing.
	dup, err := d.Log.ExistsSuccessful(ctx, event.ShipmentID, channel, event.NewStatus)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if dup {
		observability.Duplicates.WithLabelValues(string(channel)).Inc()
		observability.Dispatches.WithLabelValues(string(channel), string(domain.OutcomeAlreadyDelivered)).Inc()
		return domain.DispatchResult{Outcome: domain.OutcomeAlreadyDelivered}, nil
	}

	cfg, found, err := d.Configs.GetActiveConfig(ctx, event.TenantID, channel)
	if err != nil {
		return domain.DispatchResult{}, err
	}
	if !found {
		return d.fail(ctx, event, channel, "", recipient, domain.ErrNoActiveProvider.Error())
	}

	tpl := d.resolveTemplate(ctx, event)
	rendered := render.Render(tpl, buildVars(event, cfg, d.TrackingBaseURL))

	adapter, err := d.Adapters(cfg)
	if err != nil {
		return d.fail(ctx, event, channel, cfg.Provider, recipient, err.Error())
	}

	res, sendErr := d.send(ctx, adapter, providers.Message{
		To:      recipient,
		ToName:  event.Recipient.Name,
		Subject: rendered.Subject,
		Heading: rendered.Heading,
		Body:    rendered.Body,
	})

	now := d.Now()
	entry := store.DeliveryLogEntry{
		ID:          d.IDGen(),
		TenantID:    event.TenantID,
		ShipmentID:  event.ShipmentID,
		Channel:     channel,
		EventStatus: event.NewStatus,
		Recipient:   recipient,
		Subject:     rendered.Subject,
		Body:        truncate(rendered.Body, bodyLimit),
		Provider:    adapter.ID(),
		CreatedAt:   now,
	}

	outcome := domain.OutcomeSent
	switch {
	case sendErr != nil:
		entry.Status = domain.StatusFailed
		entry.Error = sendErr.Error()
		outcome = domain.OutcomeFailed
		observability.ProviderSends.WithLabelValues(adapter.ID(), "error").Inc()
	case res.Queued:
		entry.Status = domain.StatusQueued
		entry.ProviderMessageID = res.ProviderMessageID
		outcome = domain.OutcomeQueued
		observability.ProviderSends.WithLabelValues(adapter.ID(), "ok").Inc()
	default:
		entry.Status = domain.StatusSent
		entry.ProviderMessageID = res.ProviderMessageID
		entry.SentAt = &now
		observability.ProviderSends.WithLabelValues(adapter.ID(), "ok").Inc()
	}

	if err := d.Log.Append(ctx, entry); err != nil {
		return domain.DispatchResult{}, err
	}
	observability.Dispatches.WithLabelValues(string(channel), string(outcome)).Inc()

	return domain.DispatchResult{Outcome: outcome, EntryID: entry.ID, Error: entry.Error}, nil
}

// send wraps the provider call with the rate limiter and circuit breaker.
// Breaker-open is reported like any other provider failure.
func (d *Dispatcher) send(ctx context.Context, adapter providers.Adapter, msg providers.Message) (providers.SendResult, error) {
	if d.Limiter != nil {
		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := d.Limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			return providers.SendResult{}, fmt.Errorf("local send rate exceeded: %w", err)
		}
	}

	call := func() (any, error) {
		sendCtx := ctx
		if d.ProviderTimeout > 0 {
			var cancel context.CancelFunc
			sendCtx, cancel = context.WithTimeout(ctx, d.ProviderTimeout)
			defer cancel()
		}
		start := time.Now()
		res, err := adapter.Send(sendCtx, msg)
		observability.ProviderLatency.WithLabelValues(adapter.ID()).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	var resAny any
	var err error
	if d.Breaker != nil {
		resAny, err = d.Breaker.Execute(call)
	} else {
		resAny, err = call()
	}

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return providers.SendResult{}, fmt.Errorf("provider circuit open: %w", err)
		}
		return providers.SendResult{}, err
	}
	return resAny.(providers.SendResult), nil
}

// fail records a failed attempt that never reached a provider (or whose
// config could not produce an adapter) and reports it as a result.
func (d *Dispatcher) fail(ctx context.Context, event domain.NotificationEvent, channel domain.Channel, provider, recipient, reason string) (domain.DispatchResult, error) {
	entry := store.DeliveryLogEntry{
		ID:          d.IDGen(),
		TenantID:    event.TenantID,
		ShipmentID:  event.ShipmentID,
		Channel:     channel,
		EventStatus: event.NewStatus,
		Recipient:   recipient,
		Status:      domain.StatusFailed,
		Error:       reason,
		Provider:    provider,
		CreatedAt:   d.Now(),
	}
	if err := d.Log.Append(ctx, entry); err != nil {
		return domain.DispatchResult{}, err
	}
	observability.Dispatches.WithLabelValues(string(channel), string(domain.OutcomeFailed)).Inc()
	return domain.DispatchResult{Outcome: domain.OutcomeFailed, EntryID: entry.ID, Error: reason}, nil
}

func (d *Dispatcher) resolveTemplate(ctx context.Context, event domain.NotificationEvent) render.Template {
	tt := domain.TemplateTypeFor(event.NewStatus)
	saved, found, err := d.Templates.GetTemplate(ctx, event.TenantID, tt)
	if err != nil || !found {
		// A template read failure falls back to the built-in default
		// rather than losing the notification.
		return render.Default(tt)
	}
	return render.Template{Type: tt, Subject: saved.Subject, Heading: saved.Heading, Body: saved.Body}
}

func resolveRecipient(event domain.NotificationEvent, channel domain.Channel) string {
	switch channel {
	case domain.ChannelEmail:
		return strings.TrimSpace(event.Recipient.Email)
	case domain.ChannelSMS:
		return strings.ReplaceAll(strings.TrimSpace(event.Recipient.Phone), " ", "")
	}
	return ""
}

func buildVars(event domain.NotificationEvent, cfg store.TenantProviderConfig, trackingBase string) map[string]string {
	vars := map[string]string{
		"tracking_code":  event.TrackingCode,
		"reference_code": event.ReferenceCode,
		"status":         event.NewStatus,
		"old_status":     event.OldStatus,
		"customer_name":  event.Recipient.Name,
		"company_name":   cfg.Settings["from_name"],
		"tracking_url":   trackingURL(trackingBase, event.ReferenceCode),
	}
	if event.Invoice != nil {
		vars["invoice_amount"] = strconv.FormatFloat(event.Invoice.Amount, 'f', 2, 64)
		vars["currency"] = event.Invoice.Currency
	}
	return vars
}

func trackingURL(base, referenceCode string) string {
	if base == "" || referenceCode == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/track/" + referenceCode
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
