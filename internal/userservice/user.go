package userservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/common"
)

var (
	ErrDuplicateEmail     = fmt.Errorf("%w: duplicate email", common.ErrUniqueViolation)
	ErrNotFound           = fmt.Errorf("user %w", common.ErrRecordNotFound)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func newUserModel(db *sql.DB) *DBModel {
	return &DBModel{db: db}
}

func insertUser(ctx context.Context, q common.Querier, u *User) error {
	query := `
		INSERT INTO users (email, password, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	args := []any{
		u.Email,
		u.Password.hash,
		u.Name,
	}

	err := q.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		switch {
		case common.UniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		default:
			return err
		}
	}
	return nil
}

func (m *DBModel) getUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, password, name, created_at, id = (SELECT MIN(id) FROM users)
		FROM users
		WHERE email = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.Password.hash, &u.Name, &u.CreatedAt, &u.Administrator)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

func getUserByID(ctx context.Context, q common.Querier, id int) (*User, error) {
	query := `
		SELECT id, email, name, created_at, id = (SELECT MIN(id) FROM users)
		FROM users
		WHERE id = $1`

	var u User

	err := q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt, &u.Administrator)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	return &u, nil
}

// LoadActor resolves the authorization identity of userID using q, which should be the
// transaction the dependent write runs in. The administrator flag is read in the same
// statement as the user row. A missing user resolves to the anonymous actor.
func LoadActor(ctx context.Context, q common.Querier, userID int) (authz.Actor, error) {
	if userID <= 0 {
		return authz.Anonymous, nil
	}

	u, err := getUserByID(ctx, q, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return authz.Anonymous, nil
		default:
			return authz.Anonymous, err
		}
	}

	return u.Actor(), nil
}
