package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

const configColumns = `id, tenant_id, channel, provider, credentials_json, settings_json, is_active, created_at, updated_at`

func (s *Store) GetActiveConfig(ctx context.Context, tenantID string, channel domain.Channel) (store.TenantProviderConfig, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+configColumns+` FROM tenant_provider_configs
		WHERE tenant_id=$1 AND channel=$2 AND is_active
	`, tenantID, string(channel))
	return scanConfig(row)
}

func (s *Store) GetConfig(ctx context.Context, tenantID, configID string) (store.TenantProviderConfig, bool, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT `+configColumns+` FROM tenant_provider_configs
		WHERE tenant_id=$1 AND id=$2
	`, tenantID, configID)
	return scanConfig(row)
}

func (s *Store) ListConfigs(ctx context.Context, tenantID string, channel domain.Channel) ([]store.TenantProviderConfig, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+configColumns+` FROM tenant_provider_configs
		WHERE tenant_id=$1 AND ($2='' OR channel=$2)
		ORDER BY created_at DESC
	`, tenantID, string(channel))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.TenantProviderConfig
	for rows.Next() {
		cfg, _, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// SaveConfig inserts a new saved configuration. It never activates; callers
// switch over with Activate as a separate, explicit step.
func (s *Store) SaveConfig(ctx context.Context, cfg store.TenantProviderConfig) error {
	creds, err := json.Marshal(cfg.Credentials)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(cfg.Settings)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO tenant_provider_configs
			(id, tenant_id, channel, provider, credentials_json, settings_json, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,false,$7,$7)
	`, cfg.ID, cfg.TenantID, string(cfg.Channel), cfg.Provider, creds, settings, cfg.CreatedAt)
	return err
}

// UpdateConfig replaces the credentials and settings of an existing saved
// configuration. Activation state is untouched.
func (s *Store) UpdateConfig(ctx context.Context, cfg store.TenantProviderConfig) (bool, error) {
	creds, err := json.Marshal(cfg.Credentials)
	if err != nil {
		return false, err
	}
	settings, err := json.Marshal(cfg.Settings)
	if err != nil {
		return false, err
	}
	ct, err := s.DB.Exec(ctx, `
		UPDATE tenant_provider_configs
		SET credentials_json=$3, settings_json=$4, updated_at=$5
		WHERE tenant_id=$1 AND id=$2
	`, cfg.TenantID, cfg.ID, creds, settings, cfg.UpdatedAt)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// Activate makes configID the single active configuration for the tenant and
// channel. Deactivation of every sibling happens in the same transaction, so
// readers never observe two active rows for one (tenant, channel).
func (s *Store) Activate(ctx context.Context, tenantID, configID string, channel domain.Channel) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE tenant_provider_configs
		SET is_active=false, updated_at=now()
		WHERE tenant_id=$1 AND channel=$2 AND is_active
	`, tenantID, string(channel)); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE tenant_provider_configs
		SET is_active=true, updated_at=now()
		WHERE tenant_id=$1 AND id=$2 AND channel=$3
	`, tenantID, configID, string(channel))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("config %s not found for tenant %s channel %s", configID, tenantID, channel)
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (store.TenantProviderConfig, bool, error) {
	var cfg store.TenantProviderConfig
	var channel string
	var credsJSON, settingsJSON []byte
	err := row.Scan(&cfg.ID, &cfg.TenantID, &channel, &cfg.Provider, &credsJSON, &settingsJSON,
		&cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.TenantProviderConfig{}, false, nil
		}
		return store.TenantProviderConfig{}, false, err
	}
	cfg.Channel = domain.Channel(channel)
	_ = json.Unmarshal(credsJSON, &cfg.Credentials)
	_ = json.Unmarshal(settingsJSON, &cfg.Settings)
	return cfg, true, nil
}
