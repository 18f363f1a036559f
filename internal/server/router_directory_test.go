package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iamtanim0195/researchlink/internal/auth"
	"github.com/iamtanim0195/researchlink/internal/profiles"
)

func seedDirectoryFixture(t *testing.T) (handlerFixture, string) {
	t.Helper()
	fixture := newHandlerFixture(t)

	viewer := fixture.seedProfile(t, "student-1", "ada@example.com", profiles.ProfileSeed{
		Name: "Ada",
		Role: profiles.RoleStudent,
		Student: &profiles.StudentData{
			ResearchAreas: []string{"nlp"},
			IELTSScore:    8,
		},
	})
	fixture.seedProfile(t, "prof-1", "boyle@example.com", profiles.ProfileSeed{
		Name: "Boyle",
		Role: profiles.RoleProfessor,
		Professor: &profiles.ProfessorData{
			University:       "Oxford",
			ResearchAreas:    []string{"nlp", "vision"},
			IELTSRequirement: "7",
			GRERequirement:   "320",
		},
	})
	fixture.seedProfile(t, "prof-2", "curie@example.com", profiles.ProfileSeed{
		Name: "Curie",
		Role: profiles.RoleProfessor,
		Professor: &profiles.ProfessorData{
			University:       "Sorbonne",
			ResearchAreas:    []string{"physics"},
			IELTSRequirement: "8.5",
		},
	})

	token := fixture.issueToken(t, auth.Identity{ID: viewer.ID, Email: viewer.Email})
	return fixture, token
}

func directoryProfileIDs(t *testing.T, recorder *httptest.ResponseRecorder) []string {
	t.Helper()
	var response struct {
		Profiles []struct {
			ID string `json:"id"`
		} `json:"profiles"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	ids := make([]string, 0, len(response.Profiles))
	for _, profile := range response.Profiles {
		ids = append(ids, profile.ID)
	}
	return ids
}

func TestHandleDirectoryListsCounterpartsOfExplicitRole(t *testing.T) {
	fixture, token := seedDirectoryFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/directory?role=student", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	ids := directoryProfileIDs(t, recorder)
	if len(ids) != 2 {
		t.Fatalf("expected both professors, got %v", ids)
	}
}

func TestHandleDirectoryFallsBackToStoredRole(t *testing.T) {
	fixture, token := seedDirectoryFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/directory", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	ids := directoryProfileIDs(t, recorder)
	if len(ids) != 2 {
		t.Fatalf("expected professors for a student viewer, got %v", ids)
	}
	for _, id := range ids {
		if id == "student-1" {
			t.Fatalf("viewer role candidates must not appear in results")
		}
	}
}

func TestHandleDirectoryFiltersByCriteria(t *testing.T) {
	fixture, token := seedDirectoryFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/directory?role=student&research_areas=nlp&ielts=7.5&gre=320", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", recorder.Code, recorder.Body.String())
	}
	ids := directoryProfileIDs(t, recorder)
	if len(ids) != 1 || ids[0] != "prof-1" {
		t.Fatalf("expected only the matching professor, got %v", ids)
	}
}

func TestHandleDirectoryRejectsUnknownRole(t *testing.T) {
	fixture, token := seedDirectoryFixture(t)

	request := httptest.NewRequest(http.MethodGet, "/directory?role=administrator", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", recorder.Code)
	}
}
