// mock-provider is a local stand-in for SendGrid and Twilio, used in
// development and integration tests. Point a config's base_url at it.
//
// FAIL_RATE makes a fraction of sends fail, CALLBACK_DELAY controls how long
// after an SMS accept the status callback fires.
package main

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"

	"shipnotify/internal/logging"
)

type mockConfig struct {
	Port          string  `envconfig:"PORT" default:"9090"`
	LogFormat     string  `envconfig:"LOG_FORMAT" default:"text"`
	FailRate      float64 `envconfig:"FAIL_RATE" default:"0"`
	CallbackDelay string  `envconfig:"CALLBACK_DELAY" default:"500ms"`

	// Auth token used to sign status callbacks; must match the token in the
	// tenant config under test.
	AuthToken string `envconfig:"AUTH_TOKEN" default:"mock-token"`
}

type mock struct {
	cfg           mockConfig
	callbackDelay time.Duration
	seq           atomic.Int64
	http          *http.Client
}

func main() {
	var cfg mockConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	logging.Init("mock-provider", cfg.LogFormat)

	delay, err := time.ParseDuration(cfg.CallbackDelay)
	if err != nil {
		slog.Error("invalid CALLBACK_DELAY", "value", cfg.CallbackDelay)
		os.Exit(1)
	}

	m := &mock{cfg: cfg, callbackDelay: delay, http: &http.Client{Timeout: 5 * time.Second}}

	r := mux.NewRouter()
	r.HandleFunc("/v3/mail/send", m.handleSendGridSend).Methods(http.MethodPost)
	r.HandleFunc("/v3/scopes", m.handleOK).Methods(http.MethodGet)
	r.HandleFunc("/2010-04-01/Accounts/{sid}/Messages.json", m.handleTwilioSend).Methods(http.MethodPost)
	r.HandleFunc("/2010-04-01/Accounts/{sid}.json", m.handleOK).Methods(http.MethodGet)

	slog.Info("mock provider listening", "port", cfg.Port, "fail_rate", cfg.FailRate)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		slog.Error("mock provider failed", "err", err)
		os.Exit(1)
	}
}

func (m *mock) handleOK(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"active"}`)
}

func (m *mock) handleSendGridSend(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"message":"missing authorization header"}]}`)
		return
	}
	if m.shouldFail() {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errors":[{"message":"injected failure"}]}`)
		return
	}
	id := m.seq.Add(1)
	slog.Info("mock sendgrid accepted", "message_id", id)
	w.Header().Set("X-Message-Id", "mock-sg-"+strconv.FormatInt(id, 10))
	w.WriteHeader(http.StatusAccepted)
}

func (m *mock) handleTwilioSend(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"Authentication Error","code":20003}`)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"bad form","code":21602}`)
		return
	}
	if m.shouldFail() {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"injected failure","code":21211}`)
		return
	}

	sid := "SMmock" + strconv.FormatInt(m.seq.Add(1), 10)
	slog.Info("mock twilio accepted", "sid", sid, "to", r.PostForm.Get("To"))

	if cb := r.PostForm.Get("StatusCallback"); cb != "" {
		go m.fireCallback(cb, sid)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"sid": sid, "status": "queued"})
}

// fireCallback posts a signed delivered callback after the configured delay,
// mimicking Twilio's asynchronous confirmation.
func (m *mock) fireCallback(callbackURL, sid string) {
	time.Sleep(m.callbackDelay)

	form := url.Values{}
	form.Set("MessageSid", sid)
	form.Set("MessageStatus", "delivered")

	req, err := http.NewRequest(http.MethodPost, callbackURL, strings.NewReader(form.Encode()))
	if err != nil {
		slog.Error("mock callback build failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", signCallback(m.cfg.AuthToken, callbackURL, form))

	resp, err := m.http.Do(req)
	if err != nil {
		slog.Error("mock callback failed", "err", err, "sid", sid)
		return
	}
	resp.Body.Close()
	slog.Info("mock callback delivered", "sid", sid, "status", resp.StatusCode)
}

func signCallback(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (m *mock) shouldFail() bool {
	return m.cfg.FailRate > 0 && rand.Float64() < m.cfg.FailRate
}
