package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iamtanim0195/researchlink/internal/auth"
	"github.com/iamtanim0195/researchlink/internal/directory"
	"github.com/iamtanim0195/researchlink/internal/profiles"
	"go.uber.org/zap"
)

const (
	identityIDContextKey    = "researchlink_identity_id"
	identityEmailContextKey = "researchlink_identity_email"

	sessionHeartbeatInterval = 15 * time.Second
)

var (
	errMissingCredentials   = errors.New("credential authenticator dependency required")
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingRegistration  = errors.New("registration service dependency required")
	errMissingProfiles      = errors.New("profile repository dependency required")
	errMissingDirectory     = errors.New("directory service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// CredentialAuthenticator verifies email/password logins.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (auth.Identity, error)
}

// SessionTokenManager issues and validates session tokens.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, identity auth.Identity) (string, int64, error)
	ValidateToken(token string) (auth.Identity, error)
}

// Dependencies wires the HTTP boundary to the core services.
type Dependencies struct {
	Credentials  CredentialAuthenticator
	Tokens       SessionTokenManager
	Registration *profiles.RegistrationService
	Profiles     *profiles.Repository
	Directory    *directory.Service
	Sessions     *SessionBroadcaster
	Logger       *zap.Logger
}

// NewHTTPHandler assembles the gin router serving the API surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Credentials == nil {
		return nil, errMissingCredentials
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Registration == nil {
		return nil, errMissingRegistration
	}
	if deps.Profiles == nil {
		return nil, errMissingProfiles
	}
	if deps.Directory == nil {
		return nil, errMissingDirectory
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessionBroadcaster()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		credentials:  deps.Credentials,
		tokens:       deps.Tokens,
		registration: deps.Registration,
		profiles:     deps.Profiles,
		directory:    deps.Directory,
		sessions:     sessions,
		logger:       logger,
	}

	router.POST("/auth/signup", handler.handleSignup)
	router.POST("/auth/login", handler.handleLogin)
	router.GET("/auth/events", handler.handleSessionEvents)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/profiles/:id", handler.handleGetProfile)
	protected.PUT("/profiles/:id", handler.handleUpdateProfile)
	protected.GET("/directory", handler.handleDirectory)

	return router, nil
}

type httpHandler struct {
	credentials  CredentialAuthenticator
	tokens       SessionTokenManager
	registration *profiles.RegistrationService
	profiles     *profiles.Repository
	directory    *directory.Service
	sessions     *SessionBroadcaster
	logger       *zap.Logger
}

type profilePayload struct {
	ID               string                  `json:"id"`
	Email            string                  `json:"email"`
	Name             string                  `json:"name"`
	Role             string                  `json:"role"`
	Country          string                  `json:"country,omitempty"`
	Department       string                  `json:"department,omitempty"`
	StudentData      *profiles.StudentData   `json:"student_data,omitempty"`
	ProfessorData    *profiles.ProfessorData `json:"professor_data,omitempty"`
	CreatedAtSeconds int64                   `json:"created_at_s"`
	UpdatedAtSeconds int64                   `json:"updated_at_s"`
}

func newProfilePayload(profile profiles.UserProfile) profilePayload {
	payload := profilePayload{
		ID:               profile.ID,
		Email:            profile.Email,
		Name:             profile.Name,
		Role:             string(profile.Role),
		Country:          profile.Country,
		Department:       profile.Department,
		CreatedAtSeconds: profile.CreatedAt.Unix(),
		UpdatedAtSeconds: profile.UpdatedAt.Unix(),
	}
	if data, ok := profile.ActiveStudentData(); ok {
		payload.StudentData = &data
	}
	if data, ok := profile.ActiveProfessorData(); ok {
		payload.ProfessorData = &data
	}
	return payload
}

type signupRequestPayload struct {
	Email         string                  `json:"email"`
	Password      string                  `json:"password"`
	Name          string                  `json:"name"`
	Role          string                  `json:"role"`
	Country       string                  `json:"country"`
	Department    string                  `json:"department"`
	StudentData   *profiles.StudentData   `json:"student_data"`
	ProfessorData *profiles.ProfessorData `json:"professor_data"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponsePayload struct {
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
	TokenType   string          `json:"token_type"`
	Profile     *profilePayload `json:"profile,omitempty"`
}

func (h *httpHandler) handleSignup(c *gin.Context) {
	var request signupRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	role, err := profiles.ParseRole(request.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	profile, err := h.registration.Register(c.Request.Context(), profiles.RegistrationRequest{
		Email:    request.Email,
		Password: request.Password,
		Seed: profiles.ProfileSeed{
			Name:       request.Name,
			Role:       role,
			Country:    request.Country,
			Department: request.Department,
			Student:    request.StudentData,
			Professor:  request.ProfessorData,
		},
	})
	if err != nil {
		h.respondRegistrationError(c, err)
		return
	}

	identity := auth.Identity{ID: profile.ID, Email: profile.Email}
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	h.sessions.Publish(SessionEvent{
		IdentityID: identity.ID,
		Email:      identity.Email,
		EventType:  SessionEventSignedIn,
		Timestamp:  time.Now().UTC(),
	})

	payload := newProfilePayload(profile)
	c.JSON(http.StatusCreated, sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Profile:     &payload,
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	identity, err := h.credentials.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication_failed"})
		return
	}

	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	response := sessionResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	}
	profile, err := h.profiles.FindByID(c.Request.Context(), identity.ID)
	if err == nil {
		payload := newProfilePayload(profile)
		response.Profile = &payload
	} else if !errors.Is(err, profiles.ErrProfileNotFound) {
		h.logger.Warn("profile lookup failed during login", zap.Error(err))
	}

	h.sessions.Publish(SessionEvent{
		IdentityID: identity.ID,
		Email:      identity.Email,
		EventType:  SessionEventSignedIn,
		Timestamp:  time.Now().UTC(),
	})

	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	h.sessions.Publish(SessionEvent{
		IdentityID: c.GetString(identityIDContextKey),
		Email:      c.GetString(identityEmailContextKey),
		EventType:  SessionEventSignedOut,
		Timestamp:  time.Now().UTC(),
	})
	c.Status(http.StatusNoContent)
}

type sessionEventPayload struct {
	IdentityID string `json:"identity_id"`
	Email      string `json:"email,omitempty"`
	Timestamp  int64  `json:"timestamp_s"`
}

// handleSessionEvents streams sign-in/sign-out transitions for the calling
// identity over SSE. EventSource cannot set headers, so the token is also
// accepted as a query parameter.
func (h *httpHandler) handleSessionEvents(c *gin.Context) {
	token := strings.TrimSpace(c.Query("access_token"))
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	identity, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stream, cleanup := h.sessions.Subscribe(c.Request.Context(), identity.ID)
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(sessionHeartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(event.EventType, sessionEventPayload{
				IdentityID: event.IdentityID,
				Email:      event.Email,
				Timestamp:  event.Timestamp.Unix(),
			})
			return true
		case <-heartbeat.C:
			c.SSEvent(sessionEventHeartbeat, gin.H{"timestamp_s": time.Now().Unix()})
			return true
		}
	})
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	profile, err := h.profiles.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
			return
		}
		h.logger.Error("profile lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, newProfilePayload(profile))
}

type updateProfileRequestPayload struct {
	Name          *string                 `json:"name"`
	Role          *string                 `json:"role"`
	Country       *string                 `json:"country"`
	Department    *string                 `json:"department"`
	StudentData   *profiles.StudentData   `json:"student_data"`
	ProfessorData *profiles.ProfessorData `json:"professor_data"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	var request updateProfileRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	update := profiles.ProfileUpdate{
		Name:          request.Name,
		Country:       request.Country,
		Department:    request.Department,
		StudentData:   request.StudentData,
		ProfessorData: request.ProfessorData,
	}
	if request.Role != nil {
		role, err := profiles.ParseRole(*request.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
			return
		}
		update.Role = &role
	}

	profile, err := h.profiles.UpdateByID(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		switch {
		case errors.Is(err, profiles.ErrProfileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
		case errors.Is(err, profiles.ErrInvalidProfile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile"})
		default:
			h.logger.Error("profile update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_update_failed"})
		}
		return
	}
	c.JSON(http.StatusOK, newProfilePayload(profile))
}

type directoryResponsePayload struct {
	Profiles []profilePayload `json:"profiles"`
}

func (h *httpHandler) handleDirectory(c *gin.Context) {
	viewerRole, err := h.resolveViewerRole(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
		return
	}

	criteria := directory.Criteria{
		ResearchAreas: c.Query("research_areas"),
		GRE:           c.Query("gre"),
	}
	if raw := strings.TrimSpace(c.Query("ielts")); raw != "" {
		// Unparsable values degrade to zero, matching the engine's
		// permissive treatment of stored scores.
		if value, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
			criteria.IELTS = value
		}
	}

	matches, err := h.directory.SearchCounterparts(c.Request.Context(), viewerRole, criteria)
	if err != nil {
		h.logger.Error("directory search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "directory_search_failed"})
		return
	}

	response := directoryResponsePayload{Profiles: make([]profilePayload, 0, len(matches))}
	for _, match := range matches {
		response.Profiles = append(response.Profiles, newProfilePayload(match))
	}
	c.JSON(http.StatusOK, response)
}

// resolveViewerRole prefers the explicit role query parameter and falls back to
// the caller's stored profile role.
func (h *httpHandler) resolveViewerRole(c *gin.Context) (profiles.Role, error) {
	if raw := c.Query("role"); strings.TrimSpace(raw) != "" {
		return profiles.ParseRole(raw)
	}
	profile, err := h.profiles.FindByID(c.Request.Context(), c.GetString(identityIDContextKey))
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	identity, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(identityIDContextKey, identity.ID)
	c.Set(identityEmailContextKey, identity.Email)
	c.Next()
}

func (h *httpHandler) respondRegistrationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
	case errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "weak_password"})
	case errors.Is(err, auth.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
	case errors.Is(err, profiles.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile"})
	case errors.Is(err, profiles.ErrDuplicateProfile):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_profile"})
	default:
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
