package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/sushihentaime/quill/internal/authz"
	"github.com/sushihentaime/quill/internal/common"
)

// NewUserService wires the user model to a session store. mb may be nil, in which case no
// user.registered events are published.
func NewUserService(db *sql.DB, sessions SessionStore, mb common.MessageProducer, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		m:        newUserModel(db),
		sessions: sessions,
		mb:       mb,
		logger:   logger,
	}
}

// Register creates a user account and publishes a user.registered event. The returned user
// carries the administrator flag derived in the registering transaction. That transaction is
// serializable, so of two concurrent first registrations at most one is returned as administrator.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	v := common.NewValidator()
	validateName(v, name)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Name:  name,
		Email: email,
	}

	err := u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = common.WithSerializableTx(ctx, s.m.db, func(tx *sql.Tx) error {
		if err := insertUser(ctx, tx, &u); err != nil {
			return err
		}

		actor, err := LoadActor(ctx, tx, u.ID)
		if err != nil {
			return err
		}
		u.Administrator = actor.Administrator

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishRegistered(ctx, &u)

	return &u, nil
}

func (s *UserService) publishRegistered(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	data, err := json.Marshal(registeredEvent{Email: u.Email, Name: u.Name})
	if err != nil {
		s.logger.Error("could not marshal user.registered event", slog.String("error", err.Error()))
		return
	}

	// publish failures are logged, the account already exists
	if err := s.mb.Publish(ctx, data, common.UserRegisteredKey, common.BlogExchange); err != nil {
		s.logger.Error("could not publish user.registered event", slog.Int("user_id", u.ID), slog.String("error", err.Error()))
	}
}

// Authenticate verifies the credentials. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)

	v := common.NewValidator()
	validateLogin(v, email, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByEmail(ctx, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			burnComparison(password)
			return nil, ErrInvalidCredentials
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login binds a new session to userID and returns its token.
func (s *UserService) Login(ctx context.Context, userID int) (string, error) {
	return s.sessions.Bind(ctx, userID)
}

// Logout clears the session behind token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Clear(ctx, token)
}

// CurrentActor resolves the actor for one request from its session token. Missing, expired or
// dangling sessions resolve to the anonymous actor with a nil user.
func (s *UserService) CurrentActor(ctx context.Context, token string) (authz.Actor, *User, error) {
	if token == "" {
		return authz.Anonymous, nil, nil
	}

	userID, err := s.sessions.Read(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			return authz.Anonymous, nil, nil
		default:
			return authz.Anonymous, nil, err
		}
	}

	u, err := getUserByID(ctx, s.m.db, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return authz.Anonymous, nil, nil
		default:
			return authz.Anonymous, nil, err
		}
	}

	return u.Actor(), u, nil
}

// GetUser returns the user with id, including the derived administrator flag.
func (s *UserService) GetUser(ctx context.Context, id int) (*User, error) {
	return getUserByID(ctx, s.m.db, id)
}

// IsAdministrator reports whether id is the lowest id in the user set.
func (s *UserService) IsAdministrator(ctx context.Context, id int) (bool, error) {
	actor, err := LoadActor(ctx, s.m.db, id)
	if err != nil {
		return false, err
	}
	return actor.Administrator, nil
}
