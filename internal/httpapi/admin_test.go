package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"shipnotify/internal/domain"
	"shipnotify/internal/providers"
	"shipnotify/internal/store"
)

type fakeConfigStore struct {
	configs   map[string]store.TenantProviderConfig
	activated string
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{configs: map[string]store.TenantProviderConfig{}}
}

func (f *fakeConfigStore) GetConfig(ctx context.Context, tenantID, configID string) (store.TenantProviderConfig, bool, error) {
	cfg, ok := f.configs[configID]
	if !ok || cfg.TenantID != tenantID {
		return store.TenantProviderConfig{}, false, nil
	}
	return cfg, true, nil
}

func (f *fakeConfigStore) ListConfigs(ctx context.Context, tenantID string, channel domain.Channel) ([]store.TenantProviderConfig, error) {
	var out []store.TenantProviderConfig
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID && (channel == "" || cfg.Channel == channel) {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (f *fakeConfigStore) SaveConfig(ctx context.Context, cfg store.TenantProviderConfig) error {
	f.configs[cfg.ID] = cfg
	return nil
}

func (f *fakeConfigStore) UpdateConfig(ctx context.Context, cfg store.TenantProviderConfig) (bool, error) {
	if _, ok := f.configs[cfg.ID]; !ok {
		return false, nil
	}
	f.configs[cfg.ID] = cfg
	return true, nil
}

func (f *fakeConfigStore) Activate(ctx context.Context, tenantID, configID string, channel domain.Channel) error {
	for id, cfg := range f.configs {
		if cfg.TenantID == tenantID && cfg.Channel == channel {
			cfg.IsActive = id == configID
			f.configs[id] = cfg
		}
	}
	f.activated = configID
	return nil
}

type fakeTemplateStore struct {
	templates map[domain.TemplateType]store.NotificationTemplate
}

func (f *fakeTemplateStore) GetTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (store.NotificationTemplate, bool, error) {
	tpl, ok := f.templates[t]
	return tpl, ok, nil
}

func (f *fakeTemplateStore) ListTemplates(ctx context.Context, tenantID string) ([]store.NotificationTemplate, error) {
	var out []store.NotificationTemplate
	for _, tpl := range f.templates {
		out = append(out, tpl)
	}
	return out, nil
}

func (f *fakeTemplateStore) UpsertTemplate(ctx context.Context, tpl store.NotificationTemplate) error {
	f.templates[tpl.Type] = tpl
	return nil
}

func (f *fakeTemplateStore) DeleteTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (bool, error) {
	if _, ok := f.templates[t]; !ok {
		return false, nil
	}
	delete(f.templates, t)
	return true, nil
}

type fakeLogReader struct {
	page  store.Page
	stats store.Stats
	gotF  store.LogFilter
	gotP  store.Pagination
}

func (f *fakeLogReader) List(ctx context.Context, filter store.LogFilter, p store.Pagination) (store.Page, error) {
	f.gotF, f.gotP = filter, p
	return f.page, nil
}

func (f *fakeLogReader) Stats(ctx context.Context, filter store.LogFilter) (store.Stats, error) {
	f.gotF = filter
	return f.stats, nil
}

type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) Invalidate(tenantID string, channel domain.Channel) {
	f.calls = append(f.calls, tenantID+"/"+string(channel))
}

type adminFixture struct {
	admin      *Admin
	router     *mux.Router
	configs    *fakeConfigStore
	templates  *fakeTemplateStore
	logs       *fakeLogReader
	cache      *fakeInvalidator
	dispatcher *fakeDispatcher
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{
		configs:    newFakeConfigStore(),
		templates:  &fakeTemplateStore{templates: map[domain.TemplateType]store.NotificationTemplate{}},
		logs:       &fakeLogReader{},
		cache:      &fakeInvalidator{},
		dispatcher: &fakeDispatcher{result: domain.DispatchResult{Outcome: domain.OutcomeSent}},
	}
	n := 0
	f.admin = &Admin{
		Configs:    f.configs,
		Templates:  f.templates,
		Logs:       f.logs,
		Cache:      f.cache,
		Dispatcher: f.dispatcher,
		Adapters: func(cfg store.TenantProviderConfig) (providers.Adapter, error) {
			return nil, fmt.Errorf("no adapter in tests")
		},
		IDGen: func() string { n++; return fmt.Sprintf("cfg_%03d", n) },
		Now:   func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
	f.router = mux.NewRouter()
	f.admin.Register(f.router)
	return f
}

func (f *adminFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func TestCatalog(t *testing.T) {
	f := newAdminFixture(t)
	w := f.do(t, http.MethodGet, "/v1/providers", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var entries []providers.CatalogEntry
	if err := json.NewDecoder(w.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d catalog entries, want 3", len(entries))
	}
}

func TestCreateConfig(t *testing.T) {
	f := newAdminFixture(t)
	body := `{
		"channel": "email",
		"provider": "sendgrid",
		"credentials": {"api_key": "SG.secret"},
		"settings": {"from_address": "no-reply@acme.test", "from_name": "Acme"}
	}`
	w := f.do(t, http.MethodPost, "/v1/tenants/t1/configs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "SG.secret") {
		t.Fatalf("credentials leaked into response: %s", w.Body.String())
	}
	cfg := f.configs.configs["cfg_001"]
	if cfg.Provider != "sendgrid" || cfg.IsActive {
		t.Fatalf("saved config: %+v", cfg)
	}
}

func TestCreateConfigRejectsProviderChannelMismatch(t *testing.T) {
	f := newAdminFixture(t)
	w := f.do(t, http.MethodPost, "/v1/tenants/t1/configs", `{"channel":"sms","provider":"sendgrid"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	w = f.do(t, http.MethodPost, "/v1/tenants/t1/configs", `{"channel":"email","provider":"pigeon"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestActivateInvalidatesCache(t *testing.T) {
	f := newAdminFixture(t)
	f.configs.configs["cfg_a"] = store.TenantProviderConfig{
		ID: "cfg_a", TenantID: "t1", Channel: domain.ChannelSMS, Provider: "twilio",
	}

	w := f.do(t, http.MethodPost, "/v1/tenants/t1/configs/cfg_a/activate", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if f.configs.activated != "cfg_a" {
		t.Fatalf("activated = %q", f.configs.activated)
	}
	if len(f.cache.calls) != 1 || f.cache.calls[0] != "t1/sms" {
		t.Fatalf("cache invalidations: %v", f.cache.calls)
	}
}

func TestActivateUnknownConfig(t *testing.T) {
	f := newAdminFixture(t)
	w := f.do(t, http.MethodPost, "/v1/tenants/t1/configs/missing/activate", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateConfigInvalidatesCache(t *testing.T) {
	f := newAdminFixture(t)
	f.configs.configs["cfg_a"] = store.TenantProviderConfig{
		ID: "cfg_a", TenantID: "t1", Channel: domain.ChannelEmail, Provider: "sendgrid", IsActive: true,
	}
	body := `{"channel":"email","provider":"sendgrid","credentials":{"api_key":"new"},"settings":{"from_address":"x@y.z"}}`
	w := f.do(t, http.MethodPut, "/v1/tenants/t1/configs/cfg_a", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if f.configs.configs["cfg_a"].Credentials["api_key"] != "new" {
		t.Fatalf("credentials not updated: %+v", f.configs.configs["cfg_a"])
	}
	if len(f.cache.calls) != 1 {
		t.Fatalf("cache invalidations: %v", f.cache.calls)
	}
}

func TestUpsertTemplate(t *testing.T) {
	f := newAdminFixture(t)
	body := `{"subject":"Your order {{tracking_code}}","heading":"Update","body":"<p>now {{status}}</p>"}`
	w := f.do(t, http.MethodPut, "/v1/tenants/t1/templates/delivered", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	tpl := f.templates.templates[domain.TemplateDelivered]
	if tpl.Subject != "Your order {{tracking_code}}" {
		t.Fatalf("stored template: %+v", tpl)
	}
}

func TestUpsertTemplateUnknownType(t *testing.T) {
	f := newAdminFixture(t)
	w := f.do(t, http.MethodPut, "/v1/tenants/t1/templates/birthday", `{"subject":"s","body":"b"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDeleteTemplate(t *testing.T) {
	f := newAdminFixture(t)
	f.templates.templates[domain.TemplateException] = store.NotificationTemplate{
		TenantID: "t1", Type: domain.TemplateException, Subject: "s", Body: "b",
	}
	w := f.do(t, http.MethodDelete, "/v1/tenants/t1/templates/exception", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	w = f.do(t, http.MethodDelete, "/v1/tenants/t1/templates/exception", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", w.Code)
	}
}

func TestSendTestUsesFreshShipmentID(t *testing.T) {
	f := newAdminFixture(t)
	body := `{"channel":"email","recipient":{"name":"Ada","email":"ada@example.com"}}`

	w := f.do(t, http.MethodPost, "/v1/tenants/t1/notifications/test", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	w = f.do(t, http.MethodPost, "/v1/tenants/t1/notifications/test", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	events := f.dispatcher.events
	if len(events) != 2 {
		t.Fatalf("dispatcher saw %d events, want 2", len(events))
	}
	if events[0].ShipmentID == events[1].ShipmentID {
		t.Fatalf("test shipment ids must be unique, got %q twice", events[0].ShipmentID)
	}
	if events[0].TenantID != "t1" || !strings.HasPrefix(events[0].ShipmentID, "test-") {
		t.Fatalf("unexpected test event: %+v", events[0])
	}
}

func TestListDeliveriesFilters(t *testing.T) {
	f := newAdminFixture(t)
	f.logs.page = store.Page{Total: 1, Entries: []store.DeliveryLogEntry{{ID: "ntf_1"}}}

	w := f.do(t, http.MethodGet, "/v1/tenants/t1/deliveries?shipmentId=shp_9&channel=sms&status=failed&limit=10&offset=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if f.logs.gotF.TenantID != "t1" || f.logs.gotF.ShipmentID != "shp_9" ||
		f.logs.gotF.Channel != domain.ChannelSMS || f.logs.gotF.Status != domain.StatusFailed {
		t.Fatalf("filter: %+v", f.logs.gotF)
	}
	if f.logs.gotP.Limit != 10 || f.logs.gotP.Offset != 20 {
		t.Fatalf("pagination: %+v", f.logs.gotP)
	}
}

func TestDeliveryStats(t *testing.T) {
	f := newAdminFixture(t)
	f.logs.stats = store.Stats{Total: 5, Sent: 3, Failed: 1, Queued: 1}

	w := f.do(t, http.MethodGet, "/v1/tenants/t1/deliveries/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var st store.Stats
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st != (store.Stats{Total: 5, Sent: 3, Failed: 1, Queued: 1}) {
		t.Fatalf("stats: %+v", st)
	}
}
