package store

import (
	"time"

	"shipnotify/internal/domain"
)

// TenantProviderConfig is one saved provider configuration for a tenant and
// channel. Credentials carries secret fields (API key, SMTP password, auth
// token); Settings carries non-secret ones (from address, region, sender
// number). At most one row per (tenant, channel) is active.
type TenantProviderConfig struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenantId"`
	Channel     domain.Channel    `json:"channel"`
	Provider    string            `json:"provider"`
	Credentials map[string]string `json:"-"`
	Settings    map[string]string `json:"settings"`
	IsActive    bool              `json:"isActive"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NotificationTemplate is a tenant-saved template for one template type.
type NotificationTemplate struct {
	TenantID  string              `json:"tenantId"`
	Type      domain.TemplateType `json:"type"`
	Subject   string              `json:"subject"`
	Heading   string              `json:"heading,omitempty"`
	Body      string              `json:"body"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// DeliveryLogEntry is the immutable audit record of one dispatch attempt.
// EventStatus is the shipment status that triggered the dispatch; together
// with ShipmentID and Channel it forms the dedup key.
type DeliveryLogEntry struct {
	ID                string                `json:"id"`
	TenantID          string                `json:"tenantId"`
	ShipmentID        string                `json:"shipmentId"`
	Channel           domain.Channel        `json:"channel"`
	EventStatus       string                `json:"eventStatus"`
	Recipient         string                `json:"recipient"`
	Subject           string                `json:"subject"`
	Body              string                `json:"body"`
	Status            domain.DeliveryStatus `json:"status"`
	Error             string                `json:"error,omitempty"`
	Provider          string                `json:"provider"`
	ProviderMessageID string                `json:"providerMessageId,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	SentAt            *time.Time            `json:"sentAt,omitempty"`
}

// LogFilter narrows delivery log reads. TenantID is mandatory for
// tenant-scoped callers; the store never mixes tenants in one page.
type LogFilter struct {
	TenantID   string
	ShipmentID string
	Channel    domain.Channel
	Status     domain.DeliveryStatus
}

type Pagination struct {
	Limit  int
	Offset int
}

type Page struct {
	Entries []DeliveryLogEntry `json:"entries"`
	Total   int                `json:"total"`
}

type Stats struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Queued int `json:"queued"`
}

// ConfirmationUpdate moves a queued entry to its terminal status once a
// provider reports the asynchronous delivery outcome.
type ConfirmationUpdate struct {
	Provider          string
	ProviderMessageID string
	Status            domain.DeliveryStatus
	Error             string
	Now               time.Time
}
