package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"shipnotify/internal/domain"
	"shipnotify/internal/providers"
	"shipnotify/internal/store"
)

type ConfigAdminStore interface {
	GetConfig(ctx context.Context, tenantID, configID string) (store.TenantProviderConfig, bool, error)
	ListConfigs(ctx context.Context, tenantID string, channel domain.Channel) ([]store.TenantProviderConfig, error)
	SaveConfig(ctx context.Context, cfg store.TenantProviderConfig) error
	UpdateConfig(ctx context.Context, cfg store.TenantProviderConfig) (bool, error)
	Activate(ctx context.Context, tenantID, configID string, channel domain.Channel) error
}

type TemplateAdminStore interface {
	GetTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (store.NotificationTemplate, bool, error)
	ListTemplates(ctx context.Context, tenantID string) ([]store.NotificationTemplate, error)
	UpsertTemplate(ctx context.Context, tpl store.NotificationTemplate) error
	DeleteTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (bool, error)
}

type LogReader interface {
	List(ctx context.Context, f store.LogFilter, p store.Pagination) (store.Page, error)
	Stats(ctx context.Context, f store.LogFilter) (store.Stats, error)
}

type CacheInvalidator interface {
	Invalidate(tenantID string, channel domain.Channel)
}

// Admin exposes the dashboard-facing surface: provider catalog, config and
// template management, credential checks, test sends and the delivery log
// viewer. Every route is tenant-scoped; caller authentication and tenant
// membership are resolved upstream.
type Admin struct {
	Configs    ConfigAdminStore
	Templates  TemplateAdminStore
	Logs       LogReader
	Cache      CacheInvalidator
	Adapters   providers.Factory
	Dispatcher EventDispatcher

	IDGen func() string
	Now   func() time.Time
}

func (a *Admin) Register(r *mux.Router) {
	r.HandleFunc("/v1/providers", a.handleCatalog).Methods(http.MethodGet)

	r.HandleFunc("/v1/tenants/{tenant}/configs", a.handleListConfigs).Methods(http.MethodGet)
	r.HandleFunc("/v1/tenants/{tenant}/configs", a.handleCreateConfig).Methods(http.MethodPost)
	r.HandleFunc("/v1/tenants/{tenant}/configs/{id}", a.handleUpdateConfig).Methods(http.MethodPut)
	r.HandleFunc("/v1/tenants/{tenant}/configs/{id}/activate", a.handleActivate).Methods(http.MethodPost)
	r.HandleFunc("/v1/tenants/{tenant}/configs/{id}/test", a.handleTestConnection).Methods(http.MethodPost)

	r.HandleFunc("/v1/tenants/{tenant}/templates", a.handleListTemplates).Methods(http.MethodGet)
	r.HandleFunc("/v1/tenants/{tenant}/templates/{type}", a.handleUpsertTemplate).Methods(http.MethodPut)
	r.HandleFunc("/v1/tenants/{tenant}/templates/{type}", a.handleDeleteTemplate).Methods(http.MethodDelete)

	r.HandleFunc("/v1/tenants/{tenant}/notifications/test", a.handleSendTest).Methods(http.MethodPost)

	r.HandleFunc("/v1/tenants/{tenant}/deliveries", a.handleListDeliveries).Methods(http.MethodGet)
	r.HandleFunc("/v1/tenants/{tenant}/deliveries/stats", a.handleDeliveryStats).Methods(http.MethodGet)
}

func (a *Admin) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, providers.Catalog())
}

type configRequest struct {
	Channel     domain.Channel    `json:"channel"`
	Provider    string            `json:"provider"`
	Credentials map[string]string `json:"credentials"`
	Settings    map[string]string `json:"settings"`
}

func (a *Admin) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	channel := domain.Channel(r.URL.Query().Get("channel"))
	if channel != "" && !channel.Valid() {
		http.Error(w, ErrUnknownChannel, http.StatusBadRequest)
		return
	}
	cfgs, err := a.Configs.ListConfigs(r.Context(), tenant, channel)
	if err != nil {
		slog.Error("list configs failed", "err", err, "tenant_id", tenant)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if cfgs == nil {
		cfgs = []store.TenantProviderConfig{}
	}
	writeJSON(w, http.StatusOK, cfgs)
}

func (a *Admin) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if !req.Channel.Valid() {
		http.Error(w, ErrUnknownChannel, http.StatusBadRequest)
		return
	}
	entry, ok := providers.CatalogEntryFor(req.Provider)
	if !ok || entry.Channel != req.Channel {
		http.Error(w, ErrUnknownProvider, http.StatusBadRequest)
		return
	}

	cfg := store.TenantProviderConfig{
		ID:          a.IDGen(),
		TenantID:    tenant,
		Channel:     req.Channel,
		Provider:    req.Provider,
		Credentials: req.Credentials,
		Settings:    req.Settings,
		CreatedAt:   a.Now(),
		UpdatedAt:   a.Now(),
	}
	if err := a.Configs.SaveConfig(r.Context(), cfg); err != nil {
		slog.Error("save config failed", "err", err, "tenant_id", tenant, "provider", req.Provider)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (a *Admin) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant, id := vars["tenant"], vars["id"]

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}

	existing, found, err := a.Configs.GetConfig(r.Context(), tenant, id)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	existing.Credentials = req.Credentials
	existing.Settings = req.Settings
	existing.UpdatedAt = a.Now()
	if _, err := a.Configs.UpdateConfig(r.Context(), existing); err != nil {
		slog.Error("update config failed", "err", err, "tenant_id", tenant, "config_id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	a.Cache.Invalidate(tenant, existing.Channel)
	writeJSON(w, http.StatusOK, existing)
}

func (a *Admin) handleActivate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant, id := vars["tenant"], vars["id"]

	cfg, found, err := a.Configs.GetConfig(r.Context(), tenant, id)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	if err := a.Configs.Activate(r.Context(), tenant, id, cfg.Channel); err != nil {
		slog.Error("activate config failed", "err", err, "tenant_id", tenant, "config_id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	a.Cache.Invalidate(tenant, cfg.Channel)
	w.WriteHeader(http.StatusNoContent)
}

type testConnectionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (a *Admin) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant, id := vars["tenant"], vars["id"]

	cfg, found, err := a.Configs.GetConfig(r.Context(), tenant, id)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !found {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}

	adapter, err := a.Adapters(cfg)
	if err != nil {
		writeJSON(w, http.StatusOK, testConnectionResponse{Success: false, Error: err.Error()})
		return
	}
	if err := adapter.TestConnection(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, testConnectionResponse{Success: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, testConnectionResponse{Success: true})
}

type templateRequest struct {
	Subject string `json:"subject"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

func (a *Admin) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	tpls, err := a.Templates.ListTemplates(r.Context(), tenant)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if tpls == nil {
		tpls = []store.NotificationTemplate{}
	}
	writeJSON(w, http.StatusOK, tpls)
}

func (a *Admin) handleUpsertTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant := vars["tenant"]
	tt := domain.TemplateType(vars["type"])
	if !tt.Valid() {
		http.Error(w, ErrUnknownTemplate, http.StatusBadRequest)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if req.Subject == "" || req.Body == "" {
		http.Error(w, ErrMissingFields, http.StatusBadRequest)
		return
	}

	tpl := store.NotificationTemplate{
		TenantID:  tenant,
		Type:      tt,
		Subject:   req.Subject,
		Heading:   req.Heading,
		Body:      req.Body,
		UpdatedAt: a.Now(),
	}
	if err := a.Templates.UpsertTemplate(r.Context(), tpl); err != nil {
		slog.Error("upsert template failed", "err", err, "tenant_id", tenant, "type", tt)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (a *Admin) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenant := vars["tenant"]
	tt := domain.TemplateType(vars["type"])
	if !tt.Valid() {
		http.Error(w, ErrUnknownTemplate, http.StatusBadRequest)
		return
	}
	deleted, err := a.Templates.DeleteTemplate(r.Context(), tenant, tt)
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	if !deleted {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendTestRequest struct {
	Channel   domain.Channel   `json:"channel"`
	Recipient domain.Recipient `json:"recipient"`
}

// handleSendTest dispatches a synthetic event so an administrator can verify
// an activated configuration end to end. The shipment id is unique per call,
// so the dedup check never suppresses a test.
func (a *Admin) handleSendTest(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	var req sendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if !req.Channel.Valid() {
		http.Error(w, ErrUnknownChannel, http.StatusBadRequest)
		return
	}

	event := domain.NotificationEvent{
		TenantID:      tenant,
		ShipmentID:    "test-" + a.IDGen(),
		OldStatus:     "pending",
		NewStatus:     "in_transit",
		TrackingCode:  "TEST-TRACKING",
		ReferenceCode: "TEST-REF",
		Recipient:     req.Recipient,
	}
	res, err := a.Dispatcher.Dispatch(r.Context(), event, req.Channel)
	if err != nil {
		slog.Error("send test failed", "err", err, "tenant_id", tenant, "channel", req.Channel)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *Admin) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	q := r.URL.Query()

	f := store.LogFilter{
		TenantID:   tenant,
		ShipmentID: q.Get("shipmentId"),
		Channel:    domain.Channel(q.Get("channel")),
		Status:     domain.DeliveryStatus(q.Get("status")),
	}
	p := store.Pagination{
		Limit:  atoiOrZero(q.Get("limit")),
		Offset: atoiOrZero(q.Get("offset")),
	}

	page, err := a.Logs.List(r.Context(), f, p)
	if err != nil {
		slog.Error("list deliveries failed", "err", err, "tenant_id", tenant)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *Admin) handleDeliveryStats(w http.ResponseWriter, r *http.Request) {
	tenant := mux.Vars(r)["tenant"]
	q := r.URL.Query()

	st, err := a.Logs.Stats(r.Context(), store.LogFilter{
		TenantID:   tenant,
		ShipmentID: q.Get("shipmentId"),
		Channel:    domain.Channel(q.Get("channel")),
	})
	if err != nil {
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
