package profiles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Role tags a profile as belonging to one side of the matchmaking directory.
type Role string

const (
	// RoleStudent marks a profile carrying StudentData.
	RoleStudent Role = "student"
	// RoleProfessor marks a profile carrying ProfessorData.
	RoleProfessor Role = "professor"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidProfile indicates a profile failed structural validation.
	ErrInvalidProfile = errors.New("profiles: invalid profile")
	// ErrProfileNotFound indicates no profile exists for the requested identifier.
	ErrProfileNotFound = errors.New("profiles: profile not found")
	// ErrDuplicateProfile indicates the profile id or email is already stored.
	ErrDuplicateProfile = errors.New("profiles: duplicate id or email")
)

// ParseRole validates raw input and returns a Role.
func ParseRole(rawInput string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(rawInput))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleProfessor:
		return RoleProfessor, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, rawInput)
	}
}

// Counterpart returns the opposite role: the population this role browses.
func (r Role) Counterpart() Role {
	if r == RoleStudent {
		return RoleProfessor
	}
	return RoleStudent
}

// Valid reports whether the role is one of the two recognized values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleProfessor
}

// StudentData is the variant payload populated for student profiles.
type StudentData struct {
	ResearchAreas []string `json:"research_areas"`
	IELTSScore    float64  `json:"ielts_score,omitempty"`
	GRE           string   `json:"gre,omitempty"`
}

// ProfessorData is the variant payload populated for professor profiles.
// IELTSRequirement is stored as free text; the match engine parses it
// permissively (unparsable values compare as zero).
type ProfessorData struct {
	University       string   `json:"university,omitempty"`
	IsAccepting      bool     `json:"isAccepting"`
	ResearchAreas    []string `json:"research_areas"`
	IELTSRequirement string   `json:"ielts_requirement,omitempty"`
	GRERequirement   string   `json:"gre_requirement,omitempty"`
	GoogleScholar    string   `json:"google_scholar,omitempty"`
}

// UserProfile is the durable record describing one user. Exactly one exists per
// identity id, and only the variant payload matching Role is populated.
type UserProfile struct {
	ID            string                            `gorm:"column:id;primaryKey;size:190;not null"`
	Email         string                            `gorm:"column:email;size:320;not null;uniqueIndex"`
	Name          string                            `gorm:"column:name;size:320;not null"`
	Role          Role                              `gorm:"column:role;size:32;not null;index"`
	Country       string                            `gorm:"column:country;size:190"`
	Department    string                            `gorm:"column:department;size:190"`
	StudentData   datatypes.JSONType[StudentData]   `gorm:"column:student_data"`
	ProfessorData datatypes.JSONType[ProfessorData] `gorm:"column:professor_data"`
	CreatedAt     time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName exposes the table backing user profiles.
func (UserProfile) TableName() string {
	return "user_profiles"
}

// ProfileSeed carries the caller-supplied attributes for a new profile. Only the
// variant matching Role is persisted; the other is left empty.
type ProfileSeed struct {
	Name       string
	Role       Role
	Country    string
	Department string
	Student    *StudentData
	Professor  *ProfessorData
}

// NewUserProfile constructs a validated UserProfile bound to the identity id and
// email. Construction enforces structural validity only; matching semantics live
// in the directory package.
func NewUserProfile(id, email string, seed ProfileSeed) (UserProfile, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" || len(trimmedID) > maxIdentifierLength {
		return UserProfile{}, fmt.Errorf("%w: id required", ErrInvalidProfile)
	}
	trimmedEmail := strings.ToLower(strings.TrimSpace(email))
	if trimmedEmail == "" {
		return UserProfile{}, fmt.Errorf("%w: email required", ErrInvalidProfile)
	}
	trimmedName := strings.TrimSpace(seed.Name)
	if trimmedName == "" {
		return UserProfile{}, fmt.Errorf("%w: name required", ErrInvalidProfile)
	}
	if !seed.Role.Valid() {
		return UserProfile{}, fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, seed.Role)
	}

	profile := UserProfile{
		ID:         trimmedID,
		Email:      trimmedEmail,
		Name:       trimmedName,
		Role:       seed.Role,
		Country:    strings.TrimSpace(seed.Country),
		Department: strings.TrimSpace(seed.Department),
	}

	switch seed.Role {
	case RoleStudent:
		data := StudentData{}
		if seed.Student != nil {
			data = *seed.Student
		}
		profile.StudentData = datatypes.NewJSONType(data)
		profile.ProfessorData = datatypes.NewJSONType(ProfessorData{})
	case RoleProfessor:
		data := ProfessorData{}
		if seed.Professor != nil {
			data = *seed.Professor
		}
		profile.ProfessorData = datatypes.NewJSONType(data)
		profile.StudentData = datatypes.NewJSONType(StudentData{})
	}

	return profile, nil
}

// ActiveStudentData returns the student payload when the profile's role is student.
func (p UserProfile) ActiveStudentData() (StudentData, bool) {
	if p.Role != RoleStudent {
		return StudentData{}, false
	}
	return p.StudentData.Data(), true
}

// ActiveProfessorData returns the professor payload when the profile's role is professor.
func (p UserProfile) ActiveProfessorData() (ProfessorData, bool) {
	if p.Role != RoleProfessor {
		return ProfessorData{}, false
	}
	return p.ProfessorData.Data(), true
}
