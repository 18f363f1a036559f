package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/iamtanim0195/researchlink/internal/profiles"
)

type stubProfileSource struct {
	byRole map[profiles.Role][]profiles.UserProfile
	err    error
	calls  int
}

func (s *stubProfileSource) FindByRole(_ context.Context, role profiles.Role) ([]profiles.UserProfile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.byRole[role], nil
}

func TestSearchCounterpartsFetchesOppositeRole(t *testing.T) {
	source := &stubProfileSource{byRole: map[profiles.Role][]profiles.UserProfile{
		profiles.RoleProfessor: {
			professorProfile(t, "prof-1", profiles.ProfessorData{ResearchAreas: []string{"nlp"}}),
		},
	}}
	service, err := NewService(ServiceConfig{Profiles: source})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	matches, err := service.SearchCounterparts(context.Background(), profiles.RoleStudent, Criteria{ResearchAreas: "nlp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "prof-1" {
		t.Fatalf("expected the nlp professor, got %+v", matches)
	}
}

func TestSearchCounterpartsRefetchesPerSubmission(t *testing.T) {
	source := &stubProfileSource{byRole: map[profiles.Role][]profiles.UserProfile{}}
	service, err := NewService(ServiceConfig{Profiles: source})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.SearchCounterparts(context.Background(), profiles.RoleProfessor, Criteria{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if source.calls != 3 {
		t.Fatalf("expected one fetch per submission, got %d", source.calls)
	}
}

func TestSearchCounterpartsPropagatesSourceError(t *testing.T) {
	sourceErr := errors.New("storage down")
	service, err := NewService(ServiceConfig{Profiles: &stubProfileSource{err: sourceErr}})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	if _, err := service.SearchCounterparts(context.Background(), profiles.RoleStudent, Criteria{}); !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error to propagate, got %v", err)
	}
}

func TestNewServiceRequiresProfileSource(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatalf("expected error for missing profile source")
	}
}
