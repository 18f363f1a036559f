package server

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/iamtanim0195/researchlink/internal/auth"
	"github.com/iamtanim0195/researchlink/internal/directory"
	"github.com/iamtanim0195/researchlink/internal/profiles"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type handlerFixture struct {
	handler     http.Handler
	tokens      *auth.TokenIssuer
	repository  *profiles.Repository
	credentials *auth.CredentialStore
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	databasePath := filepath.Join(t.TempDir(), "server.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&auth.Credential{}, &profiles.UserProfile{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	credentials, err := auth.NewCredentialStore(auth.CredentialStoreConfig{
		Database:   db,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to create credential store: %v", err)
	}

	tokens := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "researchlink-auth",
		Audience:      "researchlink-api",
		TokenTTL:      time.Minute,
	})

	repository, err := profiles.NewRepository(profiles.RepositoryConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	registration, err := profiles.NewRegistrationService(profiles.RegistrationConfig{
		Credentials: credentials,
		Repository:  repository,
	})
	if err != nil {
		t.Fatalf("failed to create registration service: %v", err)
	}

	directoryService, err := directory.NewService(directory.ServiceConfig{Profiles: repository})
	if err != nil {
		t.Fatalf("failed to create directory service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Credentials:  credentials,
		Tokens:       tokens,
		Registration: registration,
		Profiles:     repository,
		Directory:    directoryService,
		Sessions:     NewSessionBroadcaster(),
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}

	return handlerFixture{
		handler:     handler,
		tokens:      tokens,
		repository:  repository,
		credentials: credentials,
	}
}

func (f handlerFixture) issueToken(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, _, err := f.tokens.IssueSessionToken(context.Background(), identity)
	if err != nil {
		t.Fatalf("failed to issue session token: %v", err)
	}
	return token
}

func (f handlerFixture) seedProfile(t *testing.T, id, email string, seed profiles.ProfileSeed) profiles.UserProfile {
	t.Helper()
	profile, err := profiles.NewUserProfile(id, email, seed)
	if err != nil {
		t.Fatalf("failed to build profile: %v", err)
	}
	created, err := f.repository.Create(context.Background(), profile)
	if err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	return created
}
