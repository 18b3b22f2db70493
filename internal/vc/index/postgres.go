package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"claimchain/contracts/credential"
	"claimchain/internal/sentinel"
)

// PostgresStore persists issued-credential records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential index.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("credential record is required")
	}
	query := `
		INSERT INTO issued_credentials (credential_id, claim_id, policy_id, status, jwt, cid, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (claim_id) DO UPDATE
		SET credential_id = EXCLUDED.credential_id,
		    status = EXCLUDED.status,
		    jwt = EXCLUDED.jwt,
		    cid = EXCLUDED.cid,
		    issued_at = EXCLUDED.issued_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.CredentialID,
		rec.ClaimID,
		rec.PolicyID,
		string(rec.Status),
		rec.JWT,
		rec.CID,
		rec.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("save issued credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByClaim(ctx context.Context, claimID uint64) (*Record, error) {
	query := `
		SELECT credential_id, claim_id, policy_id, status, jwt, cid, issued_at
		FROM issued_credentials
		WHERE claim_id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, claimID))
}

func (s *PostgresStore) FindByPolicy(ctx context.Context, policyID uint64) (*Record, error) {
	query := `
		SELECT credential_id, claim_id, policy_id, status, jwt, cid, issued_at
		FROM issued_credentials
		WHERE policy_id = $1
		ORDER BY issued_at DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, policyID))
}

func (s *PostgresStore) scanOne(row *sql.Row) (*Record, error) {
	var rec Record
	var status string
	err := row.Scan(&rec.CredentialID, &rec.ClaimID, &rec.PolicyID, &status, &rec.JWT, &rec.CID, &rec.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find issued credential: %w", err)
	}
	rec.Status = credential.Status(status)
	return &rec, nil
}
