package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"shipnotify/internal/domain"
)

// EventDispatcher is the dispatch core as seen by the HTTP trigger.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event domain.NotificationEvent, channel domain.Channel) (domain.DispatchResult, error)
}

// API receives shipment status events from the upstream tracking system.
// Delivery is at-least-once on that side; replays are safe because dispatch
// is idempotent.
type API struct {
	Dispatcher EventDispatcher
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/v1/events/shipment-status", a.handleEvent(domain.ChannelEmail)).Methods(http.MethodPost)
	r.HandleFunc("/v1/events/shipment-status/sms", a.handleEvent(domain.ChannelSMS)).Methods(http.MethodPost)
}

func (a *API) handleEvent(channel domain.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event domain.NotificationEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
			return
		}
		if err := event.Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := a.Dispatcher.Dispatch(r.Context(), event, channel)
		if err != nil {
			slog.Error("dispatch failed",
				"err", err,
				"tenant_id", event.TenantID,
				"shipment_id", event.ShipmentID,
				"channel", channel,
				"new_status", event.NewStatus,
			)
			http.Error(w, ErrDependency, http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
