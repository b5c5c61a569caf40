package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

const twilioDefaultBaseURL = "https://api.twilio.com"

type twilioAdapter struct {
	accountSID  string
	authToken   string
	fromNumber  string
	baseURL     string
	callbackURL string
	http        *http.Client
}

func newTwilio(cfg store.TenantProviderConfig, httpClient *http.Client) (*twilioAdapter, error) {
	sid := cfg.Settings["account_sid"]
	token := cfg.Credentials["auth_token"]
	from := cfg.Settings["from_number"]
	if sid == "" || token == "" || from == "" {
		return nil, errors.New("twilio config requires account_sid, auth_token and from_number")
	}
	base := cfg.Settings["base_url"]
	if base == "" {
		base = twilioDefaultBaseURL
	}
	return &twilioAdapter{
		accountSID:  sid,
		authToken:   token,
		fromNumber:  from,
		baseURL:     strings.TrimRight(base, "/"),
		callbackURL: cfg.Settings["status_callback_url"],
		http:        httpClient,
	}, nil
}

func (a *twilioAdapter) ID() string              { return ProviderTwilio }
func (a *twilioAdapter) Channel() domain.Channel { return domain.ChannelSMS }

type twilioSendResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	ErrorCode *int   `json:"error_code"`
	Message   string `json:"message"`
}

func (a *twilioAdapter) Send(ctx context.Context, msg Message) (SendResult, error) {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", a.fromNumber)
	form.Set("Body", msg.Body)
	if a.callbackURL != "" {
		form.Set("StatusCallback", a.callbackURL)
	}

	endpoint := a.baseURL + "/2010-04-01/Accounts/" + a.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, &Error{Provider: ProviderTwilio, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return SendResult{}, &Error{Provider: ProviderTwilio, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var out twilioSendResponse
	_ = json.Unmarshal(raw, &out)

	// Twilio returns 201 for created; treat any 2xx as accepted.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SendResult{ProviderMessageID: out.Sid, Queued: true}, nil
	}

	msgText := out.Message
	if msgText == "" {
		msgText = fmt.Sprintf("twilio request failed with status %d", resp.StatusCode)
	}
	return SendResult{}, &Error{
		Provider:   ProviderTwilio,
		Kind:       kindForStatus(resp.StatusCode),
		Message:    msgText,
		HTTPStatus: resp.StatusCode,
	}
}

func (a *twilioAdapter) TestConnection(ctx context.Context) error {
	endpoint := a.baseURL + "/2010-04-01/Accounts/" + a.accountSID + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Provider: ProviderTwilio, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	req.SetBasicAuth(a.accountSID, a.authToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return &Error{Provider: ProviderTwilio, Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var out twilioSendResponse
	_ = json.Unmarshal(raw, &out)
	msgText := out.Message
	if msgText == "" {
		msgText = fmt.Sprintf("twilio request failed with status %d", resp.StatusCode)
	}
	return &Error{
		Provider:   ProviderTwilio,
		Kind:       kindForStatus(resp.StatusCode),
		Message:    msgText,
		HTTPStatus: resp.StatusCode,
	}
}
