package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"shipnotify/internal/store"
)

func computeTwilioSignature(token, fullURL string, form url.Values) string {
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

func twilioConfig(baseURL string) store.TenantProviderConfig {
	return store.TenantProviderConfig{
		TenantID: "t1",
		Provider: ProviderTwilio,
		Credentials: map[string]string{
			"auth_token": "tok_secret",
		},
		Settings: map[string]string{
			"account_sid":         "AC123",
			"from_number":         "+15550009999",
			"base_url":            baseURL,
			"status_callback_url": "https://hooks.acme.test/v1/webhooks/twilio/status",
		},
	}
}

func TestTwilioSend(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "tok_secret" {
			t.Fatalf("basic auth = %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM777","status":"queued"}`))
	}))
	defer srv.Close()

	a, err := newTwilio(twilioConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("newTwilio: %v", err)
	}

	res, err := a.Send(context.Background(), Message{To: "+15551234567", Body: "Your order shipped"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.ProviderMessageID != "SM777" || !res.Queued {
		t.Fatalf("result: %+v", res)
	}
	if gotForm.Get("To") != "+15551234567" || gotForm.Get("From") != "+15550009999" {
		t.Fatalf("form: %v", gotForm)
	}
	if gotForm.Get("StatusCallback") != "https://hooks.acme.test/v1/webhooks/twilio/status" {
		t.Fatalf("StatusCallback = %q", gotForm.Get("StatusCallback"))
	}
}

func TestTwilioSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authentication Error - invalid username","code":20003}`))
	}))
	defer srv.Close()

	a, err := newTwilio(twilioConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("newTwilio: %v", err)
	}
	_, err = a.Send(context.Background(), Message{To: "+15551234567", Body: "hi"})

	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if perr.Kind != KindAuth || perr.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("error: %+v", perr)
	}
	if perr.Message != "Authentication Error - invalid username" {
		t.Fatalf("message = %q", perr.Message)
	}
}

func TestTwilioTestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"sid":"AC123","status":"active"}`))
	}))
	defer srv.Close()

	a, err := newTwilio(twilioConfig(srv.URL), srv.Client())
	if err != nil {
		t.Fatalf("newTwilio: %v", err)
	}
	if err := a.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
}

func TestTwilioConfigValidation(t *testing.T) {
	cfg := twilioConfig("")
	cfg.Settings["from_number"] = ""
	if _, err := newTwilio(cfg, http.DefaultClient); err == nil {
		t.Fatal("expected error for missing from_number")
	}
}

func TestVerifyTwilioSignature(t *testing.T) {
	form := url.Values{"MessageSid": {"SM1"}, "MessageStatus": {"delivered"}}
	const fullURL = "https://hooks.acme.test/cb"

	// Signature computed for token "tok" must verify only with that token.
	sig := computeTwilioSignature("tok", fullURL, form)
	if !VerifyTwilioSignature("tok", fullURL, sig, form) {
		t.Fatal("valid signature rejected")
	}
	if VerifyTwilioSignature("other", fullURL, sig, form) {
		t.Fatal("signature for wrong token accepted")
	}
	if VerifyTwilioSignature("tok", fullURL+"?x=1", sig, form) {
		t.Fatal("signature for wrong url accepted")
	}
}

func TestFactoryByProviderID(t *testing.T) {
	factory := NewFactory(http.DefaultClient)

	a, err := factory(twilioConfig(""))
	if err != nil {
		t.Fatalf("factory twilio: %v", err)
	}
	if a.ID() != ProviderTwilio {
		t.Fatalf("ID = %q", a.ID())
	}

	a, err = factory(sendgridConfig(""))
	if err != nil {
		t.Fatalf("factory sendgrid: %v", err)
	}
	if a.ID() != ProviderSendGrid {
		t.Fatalf("ID = %q", a.ID())
	}

	if _, err := factory(store.TenantProviderConfig{Provider: "pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
