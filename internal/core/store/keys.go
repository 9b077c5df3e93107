package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/swayhq/sway/internal/core/auth"
)

// AdminKey is an admin API key record. The key itself is never stored.
type AdminKey struct {
	ID         string       `db:"api_key_id" json:"id" yaml:"id"`
	Name       string       `db:"name" json:"name" yaml:"name"`
	SecretID   string       `db:"secret_id" json:"secret_id" yaml:"secret_id"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at" yaml:"created_at"`
	LastUsedAt sql.NullTime `db:"last_used_at" json:"-" yaml:"-"`
	RevokedAt  sql.NullTime `db:"revoked_at" json:"-" yaml:"-"`
}

// Revoked reports whether the key has been revoked.
func (k AdminKey) Revoked() bool {
	return k.RevokedAt.Valid
}

// AdminKeys creates, lists and revokes admin API keys.
type AdminKeys struct {
	queries Queries
	secrets map[string][]byte
	now     func() time.Time
}

// NewAdminKeys creates a key store. secrets maps secret ids to HMAC secrets.
func NewAdminKeys(queries Queries, secrets map[string][]byte) *AdminKeys {
	return &AdminKeys{queries: queries, secrets: secrets, now: func() time.Time { return time.Now().UTC() }}
}

// Create generates a key signed with the secret secretID and stores its
// HMAC. The returned key string is shown once and cannot be recovered.
func (s *AdminKeys) Create(name, secretID string) (string, *AdminKey, error) {
	secret, ok := s.secrets[secretID]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", auth.ErrUnknownKey, secretID)
	}

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", nil, fmt.Errorf("failed to generate key: %w", err)
	}
	apiKey := auth.FormatAPIKey(secretID, hex.EncodeToString(random))

	key := &AdminKey{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		SecretID:  secretID,
		CreatedAt: s.now(),
	}
	if _, err := s.queries.Exec("insert-admin-key",
		key.ID, key.Name, key.SecretID, auth.ComputeHMAC(secret, apiKey), key.CreatedAt,
	); err != nil {
		return "", nil, fmt.Errorf("failed to insert admin key: %w", err)
	}
	return apiKey, key, nil
}

// Revoke marks a key revoked. Returns an error when no active key has id.
func (s *AdminKeys) Revoke(id string) error {
	res, err := s.queries.Exec("revoke-admin-key", s.now(), id)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no active admin key %s", id)
	}
	return nil
}

// List returns every key, oldest first.
func (s *AdminKeys) List() ([]AdminKey, error) {
	var keys []AdminKey
	if err := s.queries.Select("list-admin-keys", &keys); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return keys, nil
}

// DefaultSecretID picks the lexically greatest configured secret id, which
// for UUIDv7 ids is the newest.
func DefaultSecretID(secrets map[string][]byte) (string, bool) {
	var best string
	for id := range secrets {
		if strings.Compare(id, best) > 0 {
			best = id
		}
	}
	return best, best != ""
}
