package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// CredentialStore implements persistence.CredentialStore using SQLite.
type CredentialStore struct {
	pool *ConnectionPool
}

// NewCredentialStore creates a new SQLite credential store.
func NewCredentialStore(pool *ConnectionPool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// SaveCredential stores the token hash for a session. A second save for the
// same session returns persistence.ErrDuplicate; issuance is once per session
// by contract.
func (s *CredentialStore) SaveCredential(ctx context.Context, credential persistence.SessionCredential) error {
	if credential.SessionID == "" || credential.TokenHash == "" {
		return persistence.ErrConstraintViolation
	}
	issuedAt := credential.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	_, err := s.pool.db.ExecContext(ctx,
		`INSERT INTO session_credentials (session_id, token_hash, issued_at) VALUES (?, ?, ?)`,
		credential.SessionID,
		credential.TokenHash,
		issuedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetCredential returns the stored credential for a session.
func (s *CredentialStore) GetCredential(ctx context.Context, sessionID string) (persistence.SessionCredential, error) {
	var credential persistence.SessionCredential
	var issuedAt string

	err := s.pool.db.QueryRowContext(ctx,
		`SELECT session_id, token_hash, issued_at FROM session_credentials WHERE session_id = ?`,
		sessionID,
	).Scan(&credential.SessionID, &credential.TokenHash, &issuedAt)
	if err != nil {
		return persistence.SessionCredential{}, mapError(err)
	}

	if credential.IssuedAt, err = time.Parse(time.RFC3339, issuedAt); err != nil {
		return persistence.SessionCredential{}, fmt.Errorf("failed to parse issued_at: %w", err)
	}
	return credential, nil
}
