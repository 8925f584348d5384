package userservice

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/common"
)

const (
	SessionTokenTime time.Duration = 7 * 24 * time.Hour

	// bcryptCost matches the cost used when hashing at registration.
	bcryptCost = 12

	AvatarSize = 100
)

type UserService struct {
	m        *DBModel
	sessions SessionStore
	mb       common.MessageProducer
	logger   *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type User struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  Password  `json:"-"`
	CreatedAt time.Time `json:"created_at"`

	// Administrator is derived from the user set (lowest id), never stored.
	Administrator bool `json:"administrator"`
}

type Password struct {
	Plain string `json:"-"`
	hash  []byte `json:"-"`
}

// Actor returns the authorization identity of u. A nil user is anonymous.
func (u *User) Actor() authz.Actor {
	if u == nil || u.ID == 0 {
		return authz.Anonymous
	}
	return authz.Actor{ID: u.ID, Administrator: u.Administrator}
}

// AvatarURL is the Gravatar image for u's email.
func (u *User) AvatarURL() string {
	return GravatarURL(u.Email, AvatarSize)
}

// registeredEvent is the payload published on user.registered.
type registeredEvent struct {
	Email string
	Name  string
}
