package pg

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implements the configuration store, template store and delivery log
// on Postgres. Tenant isolation is enforced by keying every query on
// tenant_id.
type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
