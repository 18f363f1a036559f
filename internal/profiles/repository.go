package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errMissingRepositoryDB = errors.New("profiles: database connection required")

// RepositoryError reports a storage failure with the operation that produced it.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("profiles: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func repositoryError(op string, err error) error {
	return &RepositoryError{Op: op, Err: err}
}

// RepositoryConfig describes the dependencies required by the profile repository.
type RepositoryConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Repository is the CRUD surface over stored user profiles.
type Repository struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewRepository constructs a Repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Database == nil {
		return nil, errMissingRepositoryDB
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: cfg.Database, clock: clock, logger: logger}, nil
}

// FindByID returns the profile stored under the identity id.
func (r *Repository) FindByID(ctx context.Context, id string) (UserProfile, error) {
	var profile UserProfile
	err := r.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserProfile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return UserProfile{}, repositoryError("find_by_id", err)
	}
	return profile, nil
}

// FindAll returns every stored profile. Order is unspecified.
func (r *Repository) FindAll(ctx context.Context) ([]UserProfile, error) {
	var stored []UserProfile
	if err := r.db.WithContext(ctx).Find(&stored).Error; err != nil {
		return nil, repositoryError("find_all", err)
	}
	return stored, nil
}

// FindByRole returns every stored profile tagged with the role. Order is unspecified.
func (r *Repository) FindByRole(ctx context.Context, role Role) ([]UserProfile, error) {
	var stored []UserProfile
	if err := r.db.WithContext(ctx).Where("role = ?", role).Find(&stored).Error; err != nil {
		return nil, repositoryError("find_by_role", err)
	}
	return stored, nil
}

// Create persists a new profile. The id and email must both be unused.
func (r *Repository) Create(ctx context.Context, profile UserProfile) (UserProfile, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing UserProfile
		err := tx.Where("id = ? OR email = ?", profile.ID, profile.Email).Take(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateProfile, profile.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return repositoryError("create_lookup", err)
		}
		if err := tx.Create(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrDuplicateProfile, profile.ID)
			}
			return repositoryError("create", err)
		}
		return nil
	})
	if err != nil {
		return UserProfile{}, err
	}
	r.logger.Info("profile created",
		zap.String("profile_id", profile.ID),
		zap.String("role", string(profile.Role)))
	return profile, nil
}

// ProfileUpdate is the structured partial-update command accepted by UpdateByID.
// Nil fields are left untouched. A non-nil StudentData or ProfessorData replaces
// the stored sub-object wholesale; callers supply the complete desired payload.
type ProfileUpdate struct {
	Name          *string
	Role          *Role
	Country       *string
	Department    *string
	StudentData   *StudentData
	ProfessorData *ProfessorData
}

func (u ProfileUpdate) empty() bool {
	return u.Name == nil && u.Role == nil && u.Country == nil &&
		u.Department == nil && u.StudentData == nil && u.ProfessorData == nil
}

// UpdateByID merges the supplied fields into the stored profile and returns the
// result. Writes are last-write-wins; no concurrency token is checked. When the
// role changes, the variant payload that no longer matches the new role is
// cleared unless the same update supplies a replacement.
func (r *Repository) UpdateByID(ctx context.Context, id string, update ProfileUpdate) (UserProfile, error) {
	trimmedID := strings.TrimSpace(id)
	var updated UserProfile
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored UserProfile
		err := tx.Where("id = ?", trimmedID).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
		}
		if err != nil {
			return repositoryError("update_lookup", err)
		}

		if update.empty() {
			updated = stored
			return nil
		}

		changes := map[string]interface{}{}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return fmt.Errorf("%w: name required", ErrInvalidProfile)
			}
			changes["name"] = name
		}
		if update.Country != nil {
			changes["country"] = strings.TrimSpace(*update.Country)
		}
		if update.Department != nil {
			changes["department"] = strings.TrimSpace(*update.Department)
		}

		role := stored.Role
		if update.Role != nil {
			if !update.Role.Valid() {
				return fmt.Errorf("%w: unknown role %q", ErrInvalidProfile, *update.Role)
			}
			role = *update.Role
			changes["role"] = role
		}
		if update.StudentData != nil {
			changes["student_data"] = datatypes.NewJSONType(*update.StudentData)
		}
		if update.ProfessorData != nil {
			changes["professor_data"] = datatypes.NewJSONType(*update.ProfessorData)
		}

		// A role switch leaves the previous variant stale; drop it so the
		// directory never serves payloads from the wrong side.
		if role != stored.Role {
			if role == RoleStudent && update.ProfessorData == nil {
				changes["professor_data"] = datatypes.NewJSONType(ProfessorData{})
			}
			if role == RoleProfessor && update.StudentData == nil {
				changes["student_data"] = datatypes.NewJSONType(StudentData{})
			}
		}

		changes["updated_at"] = r.clock().UTC()
		if err := tx.Model(&UserProfile{}).Where("id = ?", trimmedID).Updates(changes).Error; err != nil {
			return repositoryError("update", err)
		}
		if err := tx.Where("id = ?", trimmedID).Take(&updated).Error; err != nil {
			return repositoryError("update_reload", err)
		}
		return nil
	})
	if err != nil {
		return UserProfile{}, err
	}
	return updated, nil
}
