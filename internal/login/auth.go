package login

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
}

// UserStore looks up stored credentials. Registration and password management
// live elsewhere.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (User, error)
}

// TokenIssuer turns an authenticated user into a bearer token. The concrete
// format (JWT or otherwise) is the issuer's business.
type TokenIssuer interface {
	Issue(user User) (string, error)
}

// Authenticator runs the login flow: throttle check, credential verification,
// then throttle bookkeeping on the outcome.
type Authenticator struct {
	Users    UserStore
	Tokens   TokenIssuer
	Throttle *Throttle
	Log      *slog.Logger
}

// Login returns a token, ErrTooManyAttempts while the identity is locked out,
// or ErrInvalidCredentials. A lockout wins over a correct password.
func (a *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	if a.Throttle.IsBlocked(username) {
		a.logger().Warn("login blocked by throttle", "username", username)
		return "", ErrTooManyAttempts
	}

	user, err := a.Users.FindByUsername(ctx, username)
	if err != nil {
		// Unknown identities still count toward the throttle window.
		a.Throttle.RecordFailure(username)
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		a.Throttle.RecordFailure(username)
		a.logger().Info("login failed", "username", username)
		return "", ErrInvalidCredentials
	}

	a.Throttle.RecordSuccess(username)
	token, err := a.Tokens.Issue(user)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (a *Authenticator) logger() *slog.Logger {
	if a.Log != nil {
		return a.Log
	}
	return slog.Default()
}
