package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"shipnotify/internal/domain"
	"shipnotify/internal/observability"
	"shipnotify/internal/providers"
	"shipnotify/internal/store"
)

type ConfirmationLog interface {
	GetByProviderMessageID(ctx context.Context, provider, providerMsgID string) (store.DeliveryLogEntry, bool, error)
	ConfirmDelivery(ctx context.Context, u store.ConfirmationUpdate) (bool, error)
}

type WebhookConfigSource interface {
	GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error)
}

// Webhook receives Twilio status callbacks and settles queued SMS entries.
// Signatures are verified with the tenant's own auth token, resolved through
// the log entry the callback refers to.
type Webhook struct {
	Log     ConfirmationLog
	Configs WebhookConfigSource

	// PublicURL is the externally visible callback URL, the exact string
	// Twilio signs. It can differ from the request URL behind a proxy.
	PublicURL string
	Now       func() time.Time
}

func (h *Webhook) Register(r *mux.Router) {
	r.HandleFunc("/v1/webhooks/twilio/status", h.handleTwilioStatus).Methods(http.MethodPost)
}

func (h *Webhook) handleTwilioStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrBadForm, http.StatusBadRequest)
		return
	}
	sid := r.PostForm.Get("MessageSid")
	msgStatus := r.PostForm.Get("MessageStatus")
	if sid == "" {
		http.Error(w, ErrMissingFields, http.StatusBadRequest)
		return
	}

	entry, found, err := h.Log.GetByProviderMessageID(r.Context(), providers.ProviderTwilio, sid)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		// Unknown sid. Could be a late callback for a purged entry; ack so
		// Twilio stops retrying.
		observability.WebhookEvents.WithLabelValues(providers.ProviderTwilio, "unknown").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	cfg, found, err := h.Configs.GetActiveConfig(r.Context(), entry.TenantID, domain.ChannelSMS)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found || cfg.Provider != providers.ProviderTwilio {
		slog.Warn("callback for tenant without active twilio config",
			"tenant_id", entry.TenantID, "message_sid", sid)
		http.Error(w, ErrInvalidSignature, http.StatusForbidden)
		return
	}

	if !providers.VerifyTwilioSignature(cfg.Credentials["auth_token"], h.PublicURL,
		r.Header.Get("X-Twilio-Signature"), r.PostForm) {
		observability.WebhookEvents.WithLabelValues(providers.ProviderTwilio, "bad_signature").Inc()
		http.Error(w, ErrInvalidSignature, http.StatusForbidden)
		return
	}

	status, terminal := mapTwilioStatus(msgStatus)
	if !terminal {
		// Intermediate statuses (queued, sending, sent-in-flight) carry no
		// new information for the log.
		observability.WebhookEvents.WithLabelValues(providers.ProviderTwilio, "ignored").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	errMsg := ""
	if status == domain.StatusFailed {
		errMsg = "twilio: " + msgStatus
		if code := r.PostForm.Get("ErrorCode"); code != "" {
			errMsg += " (error code " + code + ")"
		}
	}

	updated, err := h.Log.ConfirmDelivery(r.Context(), store.ConfirmationUpdate{
		Provider:          providers.ProviderTwilio,
		ProviderMessageID: sid,
		Status:            status,
		Error:             errMsg,
		Now:               h.Now(),
	})
	if err != nil {
		slog.Error("confirm delivery failed", "err", err, "message_sid", sid)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if updated {
		slog.Info("delivery confirmed",
			"tenant_id", entry.TenantID,
			"shipment_id", entry.ShipmentID,
			"message_sid", sid,
			"status", status,
		)
	}
	observability.WebhookEvents.WithLabelValues(providers.ProviderTwilio, string(status)).Inc()
	w.WriteHeader(http.StatusOK)
}

func mapTwilioStatus(s string) (domain.DeliveryStatus, bool) {
	switch s {
	case "delivered":
		return domain.StatusSent, true
	case "failed", "undelivered":
		return domain.StatusFailed, true
	default:
		return "", false
	}
}
