package directory

import (
	"context"
	"errors"

	"github.com/iamtanim0195/researchlink/internal/profiles"
	"go.uber.org/zap"
)

var errMissingProfileSource = errors.New("directory: profile source required")

// ProfileSource is the slice of the profile repository the directory reads from.
type ProfileSource interface {
	FindByRole(ctx context.Context, role profiles.Role) ([]profiles.UserProfile, error)
}

// ServiceConfig describes the dependencies of the directory service.
type ServiceConfig struct {
	Profiles ProfileSource
	Logger   *zap.Logger
}

// Service serves directory views: it fetches the counterpart population fresh on
// every submission and applies the filter engine. No state is kept between
// searches.
type Service struct {
	profiles ProfileSource
	logger   *zap.Logger
}

// NewService constructs a directory Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Profiles == nil {
		return nil, errMissingProfileSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profiles: cfg.Profiles, logger: logger}, nil
}

// ListCounterparts returns the full population of the viewer's counterpart role.
func (s *Service) ListCounterparts(ctx context.Context, viewerRole profiles.Role) ([]profiles.UserProfile, error) {
	return s.profiles.FindByRole(ctx, viewerRole.Counterpart())
}

// SearchCounterparts fetches the counterpart population and filters it by the
// supplied criteria.
func (s *Service) SearchCounterparts(ctx context.Context, viewerRole profiles.Role, criteria Criteria) ([]profiles.UserProfile, error) {
	candidates, err := s.ListCounterparts(ctx, viewerRole)
	if err != nil {
		return nil, err
	}
	matches := Search(viewerRole, candidates, criteria)
	s.logger.Debug("directory search evaluated",
		zap.String("viewer_role", string(viewerRole)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)))
	return matches, nil
}
