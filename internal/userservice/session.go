package userservice

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base32"
	"errors"
	"time"

	"github.com/sushihentaime/quill/internal/common"
)

// ErrSessionNotFound is returned by SessionStore.Read for unknown, expired or malformed tokens.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore binds an opaque token to a user id. Tokens are handed to the client,
// stores keep only what they need to resolve them.
type SessionStore interface {
	Bind(ctx context.Context, userID int) (string, error)
	Read(ctx context.Context, token string) (int, error)
	Clear(ctx context.Context, token string) error
}

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

func newToken() (plain string, hash []byte, err error) {
	randomBytes := make([]byte, 16)
	_, err = rand.Read(randomBytes)
	if err != nil {
		return "", nil, err
	}

	plain = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)

	return plain, hashToken(plain), nil
}

// PostgresSessionStore keeps sha256 token hashes in the sessions table.
type PostgresSessionStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewPostgresSessionStore(db *sql.DB, ttl time.Duration) *PostgresSessionStore {
	if ttl <= 0 {
		ttl = SessionTokenTime
	}
	return &PostgresSessionStore{db: db, ttl: ttl}
}

func (s *PostgresSessionStore) Bind(ctx context.Context, userID int) (string, error) {
	plain, hash, err := newToken()
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO sessions (hash, user_id, expiry)
		VALUES ($1, $2, $3)`

	_, err = s.db.ExecContext(ctx, query, hash, userID, time.Now().Add(s.ttl))
	if err != nil {
		switch {
		case common.ForeignKeyViolation(err, "sessions_user_id_fkey"):
			return "", ErrNotFound
		default:
			return "", err
		}
	}

	return plain, nil
}

func (s *PostgresSessionStore) Read(ctx context.Context, token string) (int, error) {
	if !validateToken(token) {
		return 0, ErrSessionNotFound
	}

	query := `
		SELECT user_id
		FROM sessions
		WHERE hash = $1 AND expiry > $2`

	var userID int
	err := s.db.QueryRowContext(ctx, query, hashToken(token), time.Now()).Scan(&userID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return 0, ErrSessionNotFound
		default:
			return 0, err
		}
	}

	return userID, nil
}

func (s *PostgresSessionStore) Clear(ctx context.Context, token string) error {
	if !validateToken(token) {
		return nil
	}

	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE hash = $1", hashToken(token))
	return err
}

// DeleteExpired removes sessions whose expiry has passed and reports how many were removed.
func (s *PostgresSessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expiry <= $1", time.Now())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// MemorySessionStore keeps sessions in process memory. Sessions are lost on restart, which
// suits development and tests.
type MemorySessionStore struct {
	c   *common.Cache
	ttl time.Duration
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = SessionTokenTime
	}
	return &MemorySessionStore{c: common.NewCache(ttl, 10*time.Minute), ttl: ttl}
}

func (s *MemorySessionStore) Bind(ctx context.Context, userID int) (string, error) {
	plain, hash, err := newToken()
	if err != nil {
		return "", err
	}

	s.c.Set(common.CacheKeySession(hash), userID, s.ttl)

	return plain, nil
}

func (s *MemorySessionStore) Read(ctx context.Context, token string) (int, error) {
	if !validateToken(token) {
		return 0, ErrSessionNotFound
	}

	v, ok := s.c.Get(common.CacheKeySession(hashToken(token)))
	if !ok {
		return 0, ErrSessionNotFound
	}

	return v.(int), nil
}

func (s *MemorySessionStore) Clear(ctx context.Context, token string) error {
	s.c.Delete(common.CacheKeySession(hashToken(token)))
	return nil
}
