package profiles

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "profiles.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&UserProfile{}); err != nil {
		t.Fatalf("failed to migrate profile schema: %v", err)
	}
	repository, err := NewRepository(RepositoryConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repository, db
}

func mustProfile(t *testing.T, id, email string, seed ProfileSeed) UserProfile {
	t.Helper()
	profile, err := NewUserProfile(id, email, seed)
	if err != nil {
		t.Fatalf("unexpected profile error: %v", err)
	}
	return profile
}
