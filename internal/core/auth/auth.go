// Package auth authenticates admin gRPC calls with HMAC API keys.
//
// A key names the secret it was hashed with, so lookup is one map access
// plus one indexed query on the stored hash. Usage is recorded in
// last_used_at at most once per touchInterval.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyHeader is the metadata key carrying the admin API key.
const APIKeyHeader = "x-api-key"

const touchInterval = time.Minute

type keyIDContextKey struct{}

// Queries runs the named admin key queries. Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest any, args ...any) error
	Exec(name string, args ...any) (sql.Result, error)
}

// Authenticator verifies admin API keys against the admin_keys table.
type Authenticator struct {
	secrets map[string][]byte
	queries Queries
	now     func() time.Time
}

// NewAuthenticator creates an authenticator for keys signed with secrets,
// keyed by secret id.
func NewAuthenticator(secrets map[string][]byte, queries Queries) *Authenticator {
	return &Authenticator{secrets: secrets, queries: queries, now: time.Now}
}

type keyRecord struct {
	APIKeyID   string       `db:"api_key_id"`
	Name       string       `db:"name"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
}

func (r keyRecord) needsTouch(now time.Time) bool {
	return !r.LastUsedAt.Valid || now.Sub(r.LastUsedAt.Time) > touchInterval
}

// Authenticate returns the id of the admin key apiKey.
func (a *Authenticator) Authenticate(ctx context.Context, apiKey string) (string, error) {
	secretID, _, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}
	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	var rec keyRecord
	err = a.queries.Get("get-api-key-by-hash", &rec, ComputeHMAC(secret, apiKey))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", ErrInvalidKey
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if rec.RevokedAt.Valid {
		return "", ErrKeyRevoked
	}

	if now := a.now(); rec.needsTouch(now) {
		// Failing to record usage does not fail the call.
		_, _ = a.queries.Exec("update-last-used", now.UTC(), rec.APIKeyID)
	}
	return rec.APIKeyID, nil
}

// UnaryInterceptor authenticates every call except the exempt full method
// names and stores the key id in the handler's context.
func (a *Authenticator) UnaryInterceptor(exempt ...string) grpc.UnaryServerInterceptor {
	open := make(map[string]struct{}, len(exempt))
	for _, m := range exempt {
		open[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := open[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		keys := md.Get(APIKeyHeader)
		if len(keys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		keyID, err := a.Authenticate(ctx, keys[0])
		if err != nil {
			return nil, status.Error(codeFor(err), err.Error())
		}
		return handler(context.WithValue(ctx, keyIDContextKey{}, keyID), req)
	}
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, ErrKeyRevoked):
		return codes.PermissionDenied
	case errors.Is(err, ErrStorage):
		return codes.Unavailable
	}
	return codes.Unauthenticated
}

// KeyIDFromContext returns the authenticated admin key id, or "".
func KeyIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(keyIDContextKey{}).(string)
	return id
}
