package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

const logColumns = `id, tenant_id, shipment_id, channel, event_status, recipient, subject, body,
	status, COALESCE(error,''), COALESCE(provider,''), COALESCE(provider_msg_id,''), created_at, sent_at`

// Append writes one immutable delivery log entry. The partial unique index
// on (shipment_id, channel, event_status) for sent rows backs up the dedup
// check under concurrent replays.
func (s *Store) Append(ctx context.Context, e store.DeliveryLogEntry) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO delivery_log
			(id, tenant_id, shipment_id, channel, event_status, recipient, subject, body,
			 status, error, provider, provider_msg_id, created_at, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.ID, e.TenantID, e.ShipmentID, string(e.Channel), e.EventStatus, e.Recipient, e.Subject, e.Body,
		string(e.Status), nullIfEmpty(e.Error), nullIfEmpty(e.Provider), nullIfEmpty(e.ProviderMessageID),
		e.CreatedAt, e.SentAt)
	return err
}

// ExistsSuccessful reports whether a notification for the dedup key was
// already accepted by a provider. Queued counts: the message left the
// building, a replay must not send it again.
func (s *Store) ExistsSuccessful(ctx context.Context, shipmentID string, channel domain.Channel, eventStatus string) (bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT 1 FROM delivery_log
		WHERE shipment_id=$1 AND channel=$2 AND event_status=$3 AND status IN ('sent','queued')
		LIMIT 1
	`, shipmentID, string(channel), eventStatus)
	var one int
	err := row.Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, f store.LogFilter, p store.Pagination) (store.Page, error) {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	var total int
	if err := s.DB.QueryRow(ctx, `
		SELECT count(*) FROM delivery_log
		WHERE tenant_id=$1
		  AND ($2='' OR shipment_id=$2)
		  AND ($3='' OR channel=$3)
		  AND ($4='' OR status=$4)
	`, f.TenantID, f.ShipmentID, string(f.Channel), string(f.Status)).Scan(&total); err != nil {
		return store.Page{}, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT `+logColumns+` FROM delivery_log
		WHERE tenant_id=$1
		  AND ($2='' OR shipment_id=$2)
		  AND ($3='' OR channel=$3)
		  AND ($4='' OR status=$4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`, f.TenantID, f.ShipmentID, string(f.Channel), string(f.Status), p.Limit, p.Offset)
	if err != nil {
		return store.Page{}, err
	}
	defer rows.Close()

	page := store.Page{Total: total, Entries: []store.DeliveryLogEntry{}}
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return store.Page{}, err
		}
		page.Entries = append(page.Entries, e)
	}
	return page, rows.Err()
}

func (s *Store) Stats(ctx context.Context, f store.LogFilter) (store.Stats, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status='sent'),
		       count(*) FILTER (WHERE status='failed'),
		       count(*) FILTER (WHERE status='queued')
		FROM delivery_log
		WHERE tenant_id=$1
		  AND ($2='' OR shipment_id=$2)
		  AND ($3='' OR channel=$3)
	`, f.TenantID, f.ShipmentID, string(f.Channel))

	var st store.Stats
	if err := row.Scan(&st.Total, &st.Sent, &st.Failed, &st.Queued); err != nil {
		return store.Stats{}, err
	}
	return st, nil
}

func (s *Store) GetByProviderMessageID(ctx context.Context, provider, providerMsgID string) (store.DeliveryLogEntry, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+logColumns+` FROM delivery_log
		WHERE provider=$1 AND provider_msg_id=$2
	`, provider, providerMsgID)
	e, err := scanLogEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.DeliveryLogEntry{}, false, nil
		}
		return store.DeliveryLogEntry{}, false, err
	}
	return e, true, nil
}

// ConfirmDelivery applies a provider's asynchronous outcome to a queued
// entry. Rows already terminal are left untouched; entries are otherwise
// immutable.
func (s *Store) ConfirmDelivery(ctx context.Context, u store.ConfirmationUpdate) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE delivery_log
		SET status=$3, error=$4, sent_at=CASE WHEN $3='sent' THEN $5 ELSE sent_at END
		WHERE provider=$1 AND provider_msg_id=$2 AND status='queued'
	`, u.Provider, u.ProviderMessageID, string(u.Status), nullIfEmpty(u.Error), u.Now)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func scanLogEntry(row rowScanner) (store.DeliveryLogEntry, error) {
	var e store.DeliveryLogEntry
	var channel, status string
	err := row.Scan(&e.ID, &e.TenantID, &e.ShipmentID, &channel, &e.EventStatus, &e.Recipient,
		&e.Subject, &e.Body, &status, &e.Error, &e.Provider, &e.ProviderMessageID, &e.CreatedAt, &e.SentAt)
	if err != nil {
		return store.DeliveryLogEntry{}, err
	}
	e.Channel = domain.Channel(channel)
	e.Status = domain.DeliveryStatus(status)
	return e, nil
}
