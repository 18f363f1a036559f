package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var (
	// ErrEmailTaken indicates a credential already exists for the email address.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrInvalidCredentials indicates the email/password pair did not authenticate.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrWeakPassword indicates the supplied password is below the minimum length.
	ErrWeakPassword = errors.New("auth: password too short")
	// ErrInvalidEmail indicates the supplied email address is empty.
	ErrInvalidEmail = errors.New("auth: email address required")

	errMissingCredentialDB = errors.New("auth: database connection required")
)

// Credential stores one email/password login and the identity id it resolves to.
type Credential struct {
	IdentityID   string    `gorm:"column:identity_id;primaryKey;size:190;not null"`
	Email        string    `gorm:"column:email;size:320;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:190;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing stored credentials.
func (Credential) TableName() string {
	return "auth_credentials"
}

// CredentialStoreConfig describes the dependencies required by the credential store.
type CredentialStoreConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	BcryptCost int
	Logger     *zap.Logger
}

// CredentialStore is the first-party identity provider: it creates and verifies
// email/password credentials and issues stable identity identifiers.
type CredentialStore struct {
	db         *gorm.DB
	ids        IDProvider
	bcryptCost int
	logger     *zap.Logger
}

// NewCredentialStore constructs a CredentialStore with sane defaults.
func NewCredentialStore(cfg CredentialStoreConfig) (*CredentialStore, error) {
	if cfg.Database == nil {
		return nil, errMissingCredentialDB
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialStore{
		db:         cfg.Database,
		ids:        ids,
		bcryptCost: cost,
		logger:     logger,
	}, nil
}

// CreateCredential registers a new email/password pair and returns the issued identity.
func (s *CredentialStore) CreateCredential(ctx context.Context, email, password string) (Identity, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return Identity{}, fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, minPasswordLength)
	}

	var existing Credential
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&existing).Error
	if err == nil {
		return Identity{}, emailTakenError(normalized)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Identity{}, err
	}
	identityID, err := s.ids.NewID()
	if err != nil {
		return Identity{}, err
	}

	credential := Credential{
		IdentityID:   identityID,
		Email:        normalized,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Identity{}, emailTakenError(normalized)
		}
		return Identity{}, err
	}

	s.logger.Info("credential created", zap.String("identity_id", identityID))
	return Identity{ID: identityID, Email: normalized}, nil
}

// Authenticate verifies an email/password pair and returns the stored identity.
func (s *CredentialStore) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	normalized := normalizeEmail(email)
	if normalized == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	var credential Credential
	err := s.db.WithContext(ctx).Where("email = ?", normalized).Take(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{ID: credential.IdentityID, Email: credential.Email}, nil
}

// emailTakenError wraps ErrEmailTaken with the offending address.
func emailTakenError(email string) error {
	return fmt.Errorf("%w: %s", ErrEmailTaken, email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
