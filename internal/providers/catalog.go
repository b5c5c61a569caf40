package providers

import "shipnotify/internal/domain"

const (
	ProviderSendGrid = "sendgrid"
	ProviderSMTP     = "smtp"
	ProviderTwilio   = "twilio"
)

// FieldSpec describes one credential or setting a provider needs. Secret
// fields are write-only through the admin surface.
type FieldSpec struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Secret bool   `json:"secret"`
}

// CatalogEntry is immutable reference data describing a sendable channel
// implementation. Not tenant-specific.
type CatalogEntry struct {
	ID      string         `json:"id"`
	Channel domain.Channel `json:"channel"`
	Label   string         `json:"label"`
	Fields  []FieldSpec    `json:"fields"`
}

var catalog = []CatalogEntry{
	{
		ID:      ProviderSendGrid,
		Channel: domain.ChannelEmail,
		Label:   "SendGrid",
		Fields: []FieldSpec{
			{Key: "api_key", Label: "API key", Secret: true},
			{Key: "from_address", Label: "From address"},
			{Key: "from_name", Label: "From name"},
			{Key: "region", Label: "Region (global or eu)"},
		},
	},
	{
		ID:      ProviderSMTP,
		Channel: domain.ChannelEmail,
		Label:   "SMTP relay",
		Fields: []FieldSpec{
			{Key: "host", Label: "Host"},
			{Key: "port", Label: "Port"},
			{Key: "username", Label: "Username"},
			{Key: "password", Label: "Password", Secret: true},
			{Key: "from_address", Label: "From address"},
			{Key: "from_name", Label: "From name"},
		},
	},
	{
		ID:      ProviderTwilio,
		Channel: domain.ChannelSMS,
		Label:   "Twilio SMS",
		Fields: []FieldSpec{
			{Key: "account_sid", Label: "Account SID"},
			{Key: "auth_token", Label: "Auth token", Secret: true},
			{Key: "from_number", Label: "Sender number"},
		},
	},
}

// Catalog returns a copy of the provider reference data.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogEntryFor looks up one provider by identifier.
func CatalogEntryFor(id string) (CatalogEntry, bool) {
	for _, e := range catalog {
		if e.ID == id {
			return e, true
		}
	}
	return CatalogEntry{}, false
}
