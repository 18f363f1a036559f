package profiles

import (
	"context"
	"errors"

	"github.com/iamtanim0195/researchlink/internal/auth"
	"go.uber.org/zap"
)

var (
	errMissingCredentials = errors.New("profiles: credential service required")
	errMissingRepository  = errors.New("profiles: repository required")
)

// CredentialService is the slice of the identity provider the registration flow
// depends on.
type CredentialService interface {
	CreateCredential(ctx context.Context, email, password string) (auth.Identity, error)
}

// EventPublisher receives a notification after a profile is stored for the first
// time. Implementations must tolerate being called concurrently.
type EventPublisher interface {
	ProfileRegistered(ctx context.Context, profile UserProfile) error
}

// RegistrationConfig describes the dependencies of the registration service.
type RegistrationConfig struct {
	Credentials CredentialService
	Repository  *Repository
	Events      EventPublisher
	Logger      *zap.Logger
}

// RegistrationService binds newly issued identities to profile records: exactly
// one profile per identity, created on first registration and never overwritten
// by a retry.
type RegistrationService struct {
	credentials CredentialService
	repository  *Repository
	events      EventPublisher
	logger      *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(cfg RegistrationConfig) (*RegistrationService, error) {
	if cfg.Credentials == nil {
		return nil, errMissingCredentials
	}
	if cfg.Repository == nil {
		return nil, errMissingRepository
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		credentials: cfg.Credentials,
		repository:  cfg.Repository,
		events:      cfg.Events,
		logger:      logger,
	}, nil
}

// RegistrationRequest carries the signup form contents.
type RegistrationRequest struct {
	Email    string
	Password string
	Seed     ProfileSeed
}

// Register creates the credential with the identity provider and binds the new
// identity to a profile. Identity provider failures pass through unmodified.
func (s *RegistrationService) Register(ctx context.Context, request RegistrationRequest) (UserProfile, error) {
	identity, err := s.credentials.CreateCredential(ctx, request.Email, request.Password)
	if err != nil {
		return UserProfile{}, err
	}
	return s.BindIdentity(ctx, identity, request.Seed)
}

// BindIdentity stores a profile for the identity unless one already exists. The
// repeat path performs no write, so retried or replayed registrations are safe.
func (s *RegistrationService) BindIdentity(ctx context.Context, identity auth.Identity, seed ProfileSeed) (UserProfile, error) {
	existing, err := s.repository.FindByID(ctx, identity.ID)
	if err == nil {
		s.logger.Debug("identity already bound",
			zap.String("profile_id", existing.ID))
		return existing, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return UserProfile{}, err
	}

	profile, err := NewUserProfile(identity.ID, identity.Email, seed)
	if err != nil {
		return UserProfile{}, err
	}

	created, err := s.repository.Create(ctx, profile)
	if err != nil {
		return UserProfile{}, err
	}

	if s.events != nil {
		if publishErr := s.events.ProfileRegistered(ctx, created); publishErr != nil {
			s.logger.Warn("profile registered event publish failed",
				zap.String("profile_id", created.ID),
				zap.Error(publishErr))
		}
	}

	return created, nil
}
