package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bankguard/bankguard/internal/jwt"
	"github.com/bankguard/bankguard/internal/logger"
	"github.com/bankguard/bankguard/internal/models"
)

var (
	// ErrUserAlreadyExists is returned when the username or email is taken.
	ErrUserAlreadyExists = errors.New("username or email already exists")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserReader defines read-only operations for users.
type UserReader interface {
	GetByUsernameOrEmail(ctx context.Context, username *string, email *string) (*models.UserDB, error)
}

// UserWriter defines write operations for users.
type UserWriter interface {
	Save(ctx context.Context, username, name, email, passwordHash, role string) error
}

// TokenGenerator issues tokens for authenticated identities.
type TokenGenerator interface {
	Generate(ctx context.Context, claims jwt.Claims) (string, error)
}

// AuthService handles registration and login. It is a thin collaborator
// of the ledger engine: its only job is to supply the authenticated
// identity the transfer coordinator checks ownership against.
type AuthService struct {
	reader  UserReader
	writer  UserWriter
	tokens  TokenGenerator
	auditor Auditor
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(reader UserReader, writer UserWriter, tokens TokenGenerator, auditor Auditor) *AuthService {
	return &AuthService{
		reader:  reader,
		writer:  writer,
		tokens:  tokens,
		auditor: auditor,
	}
}

// Register registers a new user.
func (svc *AuthService) Register(ctx context.Context, username, name, email, password string) error {
	user, err := svc.reader.GetByUsernameOrEmail(ctx, &username, &email)
	if err != nil {
		logger.Log.Errorw("failed to check user exists", "error", err)
		return err
	}
	if user != nil {
		logger.Log.Warnw("user already exists", "username", username, "email", email)
		return ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := svc.writer.Save(ctx, username, name, email, string(hash), models.RoleClient); err != nil {
		logger.Log.Errorw("failed to save user", "username", username, "error", err)
		return err
	}

	return nil
}

// Login authenticates a user and returns a signed token. Failed attempts
// are journalized: they feed the same audit log the fraud features are
// derived from.
func (svc *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := svc.reader.GetByUsernameOrEmail(ctx, &username, nil)
	if err != nil {
		logger.Log.Errorw("failed to fetch user", "username", username, "error", err)
		return "", err
	}
	if user == nil {
		svc.journalizeLogin(ctx, models.ActionLoginFailure, username, "unknown username")
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		svc.journalizeLogin(ctx, models.ActionLoginFailure, username, "wrong password")
		return "", ErrInvalidCredentials
	}

	token, err := svc.tokens.Generate(ctx, jwt.Claims{
		UserID: user.UserID,
		Name:   user.Name,
		Role:   user.Role,
	})
	if err != nil {
		logger.Log.Errorw("failed to generate token", "username", username, "error", err)
		return "", err
	}

	svc.journalizeLogin(ctx, models.ActionLogin, username, "successful login")
	return token, nil
}

func (svc *AuthService) journalizeLogin(ctx context.Context, action, username, detail string) {
	if err := svc.auditor.Append(ctx, action, username,
		fmt.Sprintf("%s for %s", detail, username), nil); err != nil {
		logger.Log.Errorw("audit write failed for login event", "username", username, "error", err)
	}
}
