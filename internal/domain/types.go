package domain

import "strings"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// DeliveryStatus is the state of a delivery log entry. Entries are immutable
// once written, except queued entries, which a provider's asynchronous
// confirmation may move to sent or failed.
type DeliveryStatus string

const (
	StatusQueued DeliveryStatus = "queued"
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// TemplateType selects which notification template to render.
type TemplateType string

const (
	TemplateStatusUpdate   TemplateType = "status_update"
	TemplateOutForDelivery TemplateType = "out_for_delivery"
	TemplateDelivered      TemplateType = "delivered"
	TemplateException      TemplateType = "exception"
)

func TemplateTypes() []TemplateType {
	return []TemplateType{TemplateStatusUpdate, TemplateOutForDelivery, TemplateDelivered, TemplateException}
}

func (t TemplateType) Valid() bool {
	switch t {
	case TemplateStatusUpdate, TemplateOutForDelivery, TemplateDelivered, TemplateException:
		return true
	}
	return false
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Invoice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NotificationEvent is the input to dispatch, produced by the upstream
// shipment-tracking subsystem. It is transient; only the resulting delivery
// log entry is persisted.
type NotificationEvent struct {
	TenantID      string    `json:"tenantId"`
	ShipmentID    string    `json:"shipmentId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	TrackingCode  string    `json:"trackingCode"`
	ReferenceCode string    `json:"referenceCode"`
	Recipient     Recipient `json:"recipient"`
	Invoice       *Invoice  `json:"invoice,omitempty"`
}

func (e NotificationEvent) Validate() error {
	if e.TenantID == "" || e.ShipmentID == "" || e.NewStatus == "" {
		return ErrMissingFields
	}
	return nil
}

// TemplateTypeFor maps a shipment status to the template type that should
// announce it. Unrecognized statuses fall back to the generic update.
func TemplateTypeFor(status string) TemplateType {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "delivered":
		return TemplateDelivered
	case "out_for_delivery", "out for delivery":
		return TemplateOutForDelivery
	case "exception", "failed_attempt", "returned":
		return TemplateException
	default:
		return TemplateStatusUpdate
	}
}

type DispatchOutcome string

const (
	OutcomeSent             DispatchOutcome = "sent"
	OutcomeQueued           DispatchOutcome = "queued"
	OutcomeFailed           DispatchOutcome = "failed"
	OutcomeAlreadyDelivered DispatchOutcome = "already_delivered"
)

// DispatchResult is what dispatch returns to its caller. Provider failures
// are reported here and in the delivery log, never as errors.
type DispatchResult struct {
	Outcome DispatchOutcome `json:"outcome"`
	EntryID string          `json:"entryId,omitempty"`
	Error   string          `json:"error,omitempty"`
}
