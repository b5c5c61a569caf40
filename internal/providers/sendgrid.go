package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

// Regional API endpoints. EU data residency uses a separate host.
var sendgridEndpoints = map[string]string{
	"":       "https://api.sendgrid.com",
	"global": "https://api.sendgrid.com",
	"eu":     "https://api.eu.sendgrid.com",
}

type sendgridAdapter struct {
	apiKey   string
	from     string
	fromName string
	baseURL  string
	http     *http.Client
}

func newSendGrid(cfg store.TenantProviderConfig, httpClient *http.Client) (*sendgridAdapter, error) {
	key := cfg.Credentials["api_key"]
	from := cfg.Settings["from_address"]
	if key == "" || from == "" {
		return nil, errors.New("sendgrid config requires api_key and from_address")
	}
	base := cfg.Settings["base_url"]
	if base == "" {
		region := strings.ToLower(cfg.Settings["region"])
		var ok bool
		base, ok = sendgridEndpoints[region]
		if !ok {
			return nil, fmt.Errorf("sendgrid: unknown region %q", region)
		}
	}
	return &sendgridAdapter{
		apiKey:   key,
		from:     from,
		fromName: cfg.Settings["from_name"],
		baseURL:  strings.TrimRight(base, "/"),
		http:     httpClient,
	}, nil
}

func (a *sendgridAdapter) ID() string              { return ProviderSendGrid }
func (a *sendgridAdapter) Channel() domain.Channel { return domain.ChannelEmail }

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgMail struct {
	Personalizations []struct {
		To []sgAddress `json:"to"`
	} `json:"personalizations"`
	From    sgAddress `json:"from"`
	Subject string    `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (a *sendgridAdapter) Send(ctx context.Context, msg Message) (SendResult, error) {
	payload := sgMail{
		From:    sgAddress{Email: a.from, Name: a.fromName},
		Subject: msg.Subject,
	}
	payload.Personalizations = make([]struct {
		To []sgAddress `json:"to"`
	}, 1)
	payload.Personalizations[0].To = []sgAddress{{Email: msg.To, Name: msg.ToName}}
	payload.Content = append(payload.Content, struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}{Type: "text/html", Value: msg.Body})

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, &Error{Provider: ProviderSendGrid, Kind: KindRejected, Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, &Error{Provider: ProviderSendGrid, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return SendResult{}, &Error{Provider: ProviderSendGrid, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SendResult{ProviderMessageID: resp.Header.Get("X-Message-Id")}, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msgText := sendgridErrorMessage(raw, resp.StatusCode)
	return SendResult{}, &Error{
		Provider:   ProviderSendGrid,
		Kind:       kindForStatus(resp.StatusCode),
		Message:    msgText,
		HTTPStatus: resp.StatusCode,
	}
}

func (a *sendgridAdapter) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v3/scopes", nil)
	if err != nil {
		return &Error{Provider: ProviderSendGrid, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return &Error{Provider: ProviderSendGrid, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &Error{
		Provider:   ProviderSendGrid,
		Kind:       kindForStatus(resp.StatusCode),
		Message:    sendgridErrorMessage(raw, resp.StatusCode),
		HTTPStatus: resp.StatusCode,
	}
}

func sendgridErrorMessage(raw []byte, status int) string {
	var eb sgErrorBody
	if err := json.Unmarshal(raw, &eb); err == nil && len(eb.Errors) > 0 && eb.Errors[0].Message != "" {
		return eb.Errors[0].Message
	}
	return fmt.Sprintf("sendgrid request failed with status %d", status)
}
