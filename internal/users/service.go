package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/apperrors"
	"github.com/nhscc/qoverflow.api.hscc.bdpa.org-sub000/internal/models"
	"golang.org/x/crypto/pbkdf2"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a
// wrong password; the two are not distinguished.
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	saltBytes  = 16
	keyBytes   = 64
	iterations = 100000
)

// Registration is the input to Register.
type Registration struct {
	Username string `validate:"required,alphanum,max=16"`
	Email    string `validate:"required,email,max=50"`
	Password string `validate:"required,min=8,max=128"`
}

// Service encapsulates user-related business logic
type Service struct {
	repo     UserRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(r UserRepository) *Service {
	return &Service{repo: r, validate: validator.New(), now: time.Now}
}

// Register derives the salt/key pair for the password and stores the user.
// A taken username or email surfaces as *apperrors.DuplicateFieldError.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.User, error) {
	if err := s.validate.Struct(reg); err != nil {
		return nil, validationError(err)
	}
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	u := &models.User{
		Username:  reg.Username,
		Email:     reg.Email,
		Salt:      hex.EncodeToString(salt),
		Key:       deriveKey(reg.Password, salt),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks password against the stored salt/key.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	salt, err := hex.DecodeString(u.Salt)
	if err != nil {
		return nil, fmt.Errorf("user %s has a corrupt salt: %w", username, err)
	}
	if subtle.ConstantTimeCompare([]byte(deriveKey(password, salt)), []byte(u.Key)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) AddPoints(ctx context.Context, username string, delta int) error {
	return s.repo.AddPoints(ctx, username, delta)
}

func deriveKey(password string, salt []byte) string {
	return hex.EncodeToString(pbkdf2.Key([]byte(password), salt, iterations, keyBytes, sha256.New))
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		value := fe.Value()
		if fe.Field() == "Password" {
			value = nil
		}
		return apperrors.Invalid(apperrors.ErrInvalidInput, lowerFirst(fe.Field()), value, "failed "+fe.Tag()+" check")
	}
	return apperrors.Invalid(apperrors.ErrInvalidInput, "", nil, err.Error())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]+('a'-'A')) + s[1:]
}
