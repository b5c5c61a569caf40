package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

func (s *Store) GetTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (store.NotificationTemplate, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT tenant_id, template_type, subject, COALESCE(heading,''), body, updated_at
		FROM notification_templates
		WHERE tenant_id=$1 AND template_type=$2
	`, tenantID, string(t))

	var tpl store.NotificationTemplate
	var tt string
	err := row.Scan(&tpl.TenantID, &tt, &tpl.Subject, &tpl.Heading, &tpl.Body, &tpl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.NotificationTemplate{}, false, nil
		}
		return store.NotificationTemplate{}, false, err
	}
	tpl.Type = domain.TemplateType(tt)
	return tpl, true, nil
}

func (s *Store) UpsertTemplate(ctx context.Context, tpl store.NotificationTemplate) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO notification_templates (tenant_id, template_type, subject, heading, body, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tenant_id, template_type)
		DO UPDATE SET subject=$3, heading=$4, body=$5, updated_at=$6
	`, tpl.TenantID, string(tpl.Type), tpl.Subject, nullIfEmpty(tpl.Heading), tpl.Body, tpl.UpdatedAt)
	return err
}

func (s *Store) ListTemplates(ctx context.Context, tenantID string) ([]store.NotificationTemplate, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT tenant_id, template_type, subject, COALESCE(heading,''), body, updated_at
		FROM notification_templates
		WHERE tenant_id=$1
		ORDER BY template_type
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.NotificationTemplate
	for rows.Next() {
		var tpl store.NotificationTemplate
		var tt string
		if err := rows.Scan(&tpl.TenantID, &tt, &tpl.Subject, &tpl.Heading, &tpl.Body, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		tpl.Type = domain.TemplateType(tt)
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTemplate(ctx context.Context, tenantID string, t domain.TemplateType) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		DELETE FROM notification_templates WHERE tenant_id=$1 AND template_type=$2
	`, tenantID, string(t))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
