package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/crucial707/cinebrowse/internal/auth"
	"github.com/crucial707/cinebrowse/internal/metrics"
	"github.com/crucial707/cinebrowse/internal/middleware"
	"github.com/crucial707/cinebrowse/internal/models"
	"github.com/crucial707/cinebrowse/internal/repo"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Users    *repo.UserRepo
	Audit    *repo.AuditRepo // optional
	Hasher   *auth.Hasher
	Sessions *auth.Sessions
}

// Column widths of the users table.
const (
	maxUsernameLen   = 255
	maxExternalIDLen = 255
	maxEmailLen      = 255
	maxMobileLen     = 20
	maxNameLen       = 255
)

type signupResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	User    models.SignupUser `json:"user"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	User    models.LoginUser `json:"user"`
}

// ==========================
// Signup
// ==========================
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	user, err := h.signup(r)
	if err != nil {
		metrics.IncAuth("signup", outcome(err))
		writeError(w, r, "signup", err)
		return
	}
	metrics.IncAuth("signup", "success")

	token, err := h.Sessions.Issue(user.ID, user.Username)
	if err != nil {
		writeError(w, r, "signup", err)
		return
	}
	h.Sessions.Attach(w, token)
	h.record(r, user.ID, models.ActionSignup)

	JSON(w, http.StatusCreated, signupResponse{
		Success: true,
		Message: "User created successfully",
		User:    models.SignupUser{ID: user.ID, Username: user.Username, Name: user.Name},
	})
}

func (h *AuthHandler) signup(r *http.Request) (*models.User, error) {
	var input struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		ExternalID string `json:"externalId"`
		Email      string `json:"email"`
		Mobile     string `json:"mobile"`
		Name       string `json:"name"`
	}
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:   strings.TrimSpace(input.Username),
		ExternalID: strings.TrimSpace(input.ExternalID),
		Email:      strings.TrimSpace(input.Email),
		Mobile:     strings.TrimSpace(input.Mobile),
		Name:       strings.TrimSpace(input.Name),
	}

	fields := make(map[string]string)
	required := []struct{ name, value string }{
		{"username", user.Username},
		{"password", input.Password},
		{"externalId", user.ExternalID},
		{"email", user.Email},
		{"mobile", user.Mobile},
		{"name", user.Name},
	}
	for _, f := range required {
		if f.value == "" {
			fields[f.name] = "required"
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Message: MsgMissingFields, Fields: fields}
	}

	// Limits mirror the users table column widths.
	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"username", user.Username, maxUsernameLen},
		{"externalId", user.ExternalID, maxExternalIDLen},
		{"email", user.Email, maxEmailLen},
		{"mobile", user.Mobile, maxMobileLen},
		{"name", user.Name, maxNameLen},
	}
	for _, f := range limits {
		if utf8.RuneCountInString(f.value) > f.max {
			fields[f.name] = fmt.Sprintf("must be at most %d characters", f.max)
		}
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		fields["password"] = fmt.Sprintf("must be at most %d bytes", auth.MaxPasswordBytes)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Message: MsgValidationFailed, Fields: fields}
	}

	existing, err := h.Users.FindConflicts(r.Context(), user.Username, user.Email, user.ExternalID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &ConflictError{Message: MsgConflict}
	}

	hash, err := h.Hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hash

	// The unique constraints decide when two signups race past the pre-check.
	if _, err := h.Users.Create(r.Context(), user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, &ConflictError{Message: MsgConflict}
		}
		return nil, err
	}
	return user, nil
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	user, err := h.login(r)
	if err != nil {
		metrics.IncAuth("login", outcome(err))
		writeError(w, r, "login", err)
		return
	}
	metrics.IncAuth("login", "success")

	token, err := h.Sessions.Issue(user.ID, user.Username)
	if err != nil {
		writeError(w, r, "login", err)
		return
	}
	h.Sessions.Attach(w, token)
	h.record(r, user.ID, models.ActionLogin)

	JSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Login successful",
		User:    models.LoginUser{ID: user.ID, Username: user.Username, Name: user.Name, Email: user.Email},
	})
}

// login answers an unknown username and a wrong password with the same error.
func (h *AuthHandler) login(r *http.Request) (*models.User, error) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &input); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, &ValidationError{Message: MsgLoginFieldsRequired}
	}

	user, err := h.Users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			h.Hasher.Discard(input.Password)
			return nil, &AuthError{Message: MsgInvalidCredentials}
		}
		return nil, err
	}

	if !h.Hasher.Verify(input.Password, user.Password) {
		return nil, &AuthError{Message: MsgInvalidCredentials}
	}
	return user, nil
}

// ==========================
// Me (session lookup)
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.Sessions.FromRequest(r)
	if !ok {
		writeError(w, r, "me", &AuthError{Message: MsgUnauthorized})
		return
	}

	user, err := h.Users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = &NotFoundError{Message: MsgUserNotFound}
		}
		writeError(w, r, "me", err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// ==========================
// Logout
// ==========================

// Logout always succeeds. The token itself stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := h.Sessions.FromRequest(r); ok {
		h.record(r, claims.UserID, models.ActionLogout)
	}
	h.Sessions.Clear(w)

	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// ==========================
// Activity
// ==========================

// Activity lists the caller's recent auth events. Query: limit (default 20, max 100).
func (h *AuthHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, r, "activity", &AuthError{Message: MsgUnauthorized})
		return
	}
	if h.Audit == nil {
		JSON(w, http.StatusOK, map[string]interface{}{"items": []models.AuthEvent{}})
		return
	}

	limit := queryInt(r, "limit", 20, 100)
	items, err := h.Audit.ListForUser(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, "activity", err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

// record writes an activity row. Failures are logged and never fail the request.
func (h *AuthHandler) record(r *http.Request, userID int, action string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Log(r.Context(), userID, action, remoteIP(r), r.UserAgent()); err != nil {
		slog.WarnContext(r.Context(), "record auth activity failed",
			"request_id", chimw.GetReqID(r.Context()),
			"user_id", userID,
			"action", action,
			"error", err)
	}
}

func outcome(err error) string {
	var (
		ve *ValidationError
		ce *ConflictError
		ae *AuthError
	)
	switch {
	case errors.As(err, &ve):
		return "invalid"
	case errors.As(err, &ce):
		return "conflict"
	case errors.As(err, &ae):
		return "unauthorized"
	default:
		return "error"
	}
}
