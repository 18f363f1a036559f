package profiles

import (
	"context"
	"errors"
	"testing"
)

func TestRepositoryCreateAndFindByID(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "a@example.com", ProfileSeed{
		Name: "Ada",
		Role: RoleStudent,
		Student: &StudentData{
			ResearchAreas: []string{"nlp"},
			IELTSScore:    7,
		},
	})

	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	stored, err := repository.FindByID(context.Background(), "identity-1")
	if err != nil {
		t.Fatalf("unexpected find error: %v", err)
	}
	if stored.Email != "a@example.com" {
		t.Fatalf("unexpected email %q", stored.Email)
	}
	student, ok := stored.ActiveStudentData()
	if !ok {
		t.Fatalf("expected student payload to survive the round trip")
	}
	if student.IELTSScore != 7 {
		t.Fatalf("unexpected ielts score %v", student.IELTSScore)
	}
}

func TestRepositoryFindByIDMiss(t *testing.T) {
	repository, _ := newTestRepository(t)

	_, err := repository.FindByID(context.Background(), "absent")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRepositoryCreateRejectsDuplicateID(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "a@example.com", ProfileSeed{Name: "Ada", Role: RoleStudent})

	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	again := mustProfile(t, "identity-1", "other@example.com", ProfileSeed{Name: "Ada", Role: RoleStudent})
	if _, err := repository.Create(context.Background(), again); !errors.Is(err, ErrDuplicateProfile) {
		t.Fatalf("expected ErrDuplicateProfile, got %v", err)
	}
}

func TestRepositoryCreateRejectsDuplicateEmail(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "a@example.com", ProfileSeed{Name: "Ada", Role: RoleStudent})

	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	again := mustProfile(t, "identity-2", "a@example.com", ProfileSeed{Name: "Eve", Role: RoleProfessor})
	if _, err := repository.Create(context.Background(), again); !errors.Is(err, ErrDuplicateProfile) {
		t.Fatalf("expected ErrDuplicateProfile, got %v", err)
	}
}

func TestRepositoryFindByRole(t *testing.T) {
	repository, _ := newTestRepository(t)
	student := mustProfile(t, "identity-1", "s@example.com", ProfileSeed{Name: "Ada", Role: RoleStudent})
	professor := mustProfile(t, "identity-2", "p@example.com", ProfileSeed{Name: "Grace", Role: RoleProfessor})

	for _, profile := range []UserProfile{student, professor} {
		if _, err := repository.Create(context.Background(), profile); err != nil {
			t.Fatalf("unexpected create error: %v", err)
		}
	}

	professors, err := repository.FindByRole(context.Background(), RoleProfessor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(professors) != 1 || professors[0].ID != "identity-2" {
		t.Fatalf("expected only the professor profile, got %+v", professors)
	}

	all, err := repository.FindAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(all))
	}
}

func TestRepositoryUpdateReplacesVariantWholesale(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "p@example.com", ProfileSeed{
		Name: "Grace",
		Role: RoleProfessor,
		Professor: &ProfessorData{
			University:    "MIT",
			ResearchAreas: []string{"robotics", "vision"},
			IsAccepting:   true,
		},
	})
	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	// The replacement payload omits research areas; they must not survive.
	updated, err := repository.UpdateByID(context.Background(), "identity-1", ProfileUpdate{
		ProfessorData: &ProfessorData{University: "Stanford"},
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	professor, ok := updated.ActiveProfessorData()
	if !ok {
		t.Fatalf("expected professor payload")
	}
	if professor.University != "Stanford" {
		t.Fatalf("expected replaced university, got %q", professor.University)
	}
	if len(professor.ResearchAreas) != 0 {
		t.Fatalf("expected research areas to be cleared by wholesale replacement, got %v", professor.ResearchAreas)
	}
	if professor.IsAccepting {
		t.Fatalf("expected accepting flag to be cleared by wholesale replacement")
	}
}

func TestRepositoryUpdateMergesTopLevelFields(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "s@example.com", ProfileSeed{
		Name:    "Ada",
		Role:    RoleStudent,
		Country: "Bangladesh",
		Student: &StudentData{ResearchAreas: []string{"nlp"}},
	})
	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	name := "Ada Lovelace"
	updated, err := repository.UpdateByID(context.Background(), "identity-1", ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Name != "Ada Lovelace" {
		t.Fatalf("expected updated name, got %q", updated.Name)
	}
	if updated.Country != "Bangladesh" {
		t.Fatalf("expected untouched country, got %q", updated.Country)
	}
	student, _ := updated.ActiveStudentData()
	if len(student.ResearchAreas) != 1 {
		t.Fatalf("expected student payload untouched, got %+v", student)
	}
}

func TestRepositoryUpdateRoleSwitchClearsStaleVariant(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "s@example.com", ProfileSeed{
		Name:    "Ada",
		Role:    RoleStudent,
		Student: &StudentData{ResearchAreas: []string{"nlp"}, IELTSScore: 7},
	})
	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	role := RoleProfessor
	updated, err := repository.UpdateByID(context.Background(), "identity-1", ProfileUpdate{
		Role:          &role,
		ProfessorData: &ProfessorData{University: "MIT", ResearchAreas: []string{"nlp"}},
	})
	if err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	if updated.Role != RoleProfessor {
		t.Fatalf("expected role switch, got %q", updated.Role)
	}
	if stale := updated.StudentData.Data(); len(stale.ResearchAreas) != 0 || stale.IELTSScore != 0 {
		t.Fatalf("expected stale student payload to be cleared, got %+v", stale)
	}
}

func TestRepositoryUpdateMissingProfile(t *testing.T) {
	repository, _ := newTestRepository(t)

	name := "Nobody"
	_, err := repository.UpdateByID(context.Background(), "absent", ProfileUpdate{Name: &name})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestRepositoryUpdateRejectsEmptyName(t *testing.T) {
	repository, _ := newTestRepository(t)
	profile := mustProfile(t, "identity-1", "s@example.com", ProfileSeed{Name: "Ada", Role: RoleStudent})
	if _, err := repository.Create(context.Background(), profile); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	name := "   "
	_, err := repository.UpdateByID(context.Background(), "identity-1", ProfileUpdate{Name: &name})
	if !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}
