// Package api exposes the practice flow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"code-sprint/internal/models"
	"code-sprint/internal/practice"
	"code-sprint/internal/progress"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxBodyBytes      = 1 << 20
	minPasswordLength = 8
)

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash string) (int, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type ApiHandler struct {
	users    UserRepository
	practice *practice.Service
	progress *progress.Machine
	tokens   *Tokens
	health   Pinger
	mediaDir string
	logger   *zap.Logger
}

type Deps struct {
	Users    UserRepository
	Practice *practice.Service
	Progress *progress.Machine
	Tokens   *Tokens
	// Health is optional; nil means the process itself is the only dependency.
	Health   Pinger
	// MediaDir is served under /media/ when set.
	MediaDir string
	Logger   *zap.Logger
}

func NewApiHandler(d Deps) *ApiHandler {
	return &ApiHandler{
		users:    d.Users,
		practice: d.Practice,
		progress: d.Progress,
		tokens:   d.Tokens,
		health:   d.Health,
		mediaDir: d.MediaDir,
		logger:   d.Logger,
	}
}

// Credentials is the register/login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *ApiHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}
	creds.Email = normalizeEmail(creds.Email)
	if _, err := mail.ParseAddress(creds.Email); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(creds.Password) < minPasswordLength {
		respondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	userID, err := h.users.CreateUser(r.Context(), creds.Email, string(hashedPassword))
	if errors.Is(err, models.ErrEmailTaken) {
		respondWithError(w, http.StatusConflict, "Email already exists")
		return
	}
	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Database error")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"message": "User registered successfully", "user_id": userID})
}

func (h *ApiHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if !decodeJSON(w, r, &creds) {
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), normalizeEmail(creds.Email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		} else {
			h.logger.Error("failed to look up user", zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to create token")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *ApiHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.progress.Profile(r.Context(), userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ApiHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var update models.ProfileUpdate
	if !decodeJSON(w, r, &update) {
		return
	}
	p, err := h.progress.UpdateProfile(r.Context(), userID, update)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ApiHandler) GetLessons(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	view, err := h.practice.Lessons(r.Context(), userID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

func (h *ApiHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.lessonRequest(w, r)
	if !ok {
		return
	}
	lesson, err := h.practice.Lesson(r.Context(), userID, lessonID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, lesson)
}

type GradeRequest struct {
	ReferenceCode string `json:"reference_code"`
	TargetCode    string `json:"target_code"`
}

type GradeResponse struct {
	*practice.Result
	// Receipt is set on a pass; it lets the client retry recording the
	// completion without running the code again.
	Receipt           string `json:"receipt,omitempty"`
	CompletionSaved   bool   `json:"completion_saved"`
	CompletionWarning string `json:"completion_warning,omitempty"`
}

func (h *ApiHandler) GradeLesson(w http.ResponseWriter, r *http.Request) {
	userID, lessonID, ok := h.lessonRequest(w, r)
	if !ok {
		return
	}
	var req GradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.practice.Submit(r.Context(), userID, lessonID, req.ReferenceCode, req.TargetCode)
	if err != nil {
		h.respondWithGradeError(w, r, err, res)
		return
	}

	resp := GradeResponse{Result: res, CompletionSaved: res.Completion != nil}
	if res.Outcome.Passed() {
		resp.Receipt, err = h.tokens.IssueReceipt(userID, res.SourceLang, res.TargetLang, lessonID)
		if err != nil {
			h.logger.Error("failed to sign completion receipt", zap.Error(err))
		}
	}
	if res.RecordErr != nil {
		h.logger.Warn("verdict stands but completion was not recorded",
			zap.Int("user_id", userID),
			zap.Int("lesson_id", lessonID),
			zap.Error(res.RecordErr))
		resp.CompletionWarning = "Your solution passed but progress could not be saved. Retry saving it with the receipt."
	}
	respondWithJSON(w, http.StatusOK, resp)
}

type CompleteRequest struct {
	Receipt string `json:"receipt"`
}

// CompleteLesson retries recording a pass from a receipt issued by GradeLesson.
func (h *ApiHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req CompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	receipt, err := h.tokens.ParseReceipt(req.Receipt)
	if err != nil || receipt.UserID != userID {
		respondWithError(w, http.StatusUnauthorized, "Invalid completion receipt")
		return
	}

	c, err := h.practice.RetryCompletion(r.Context(), userID, receipt.SourceLang, receipt.TargetLang, receipt.LessonID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (h *ApiHandler) RunCode(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	var req RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.practice.Run(r.Context(), req.Language, req.Code)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (h *ApiHandler) GenerateReference(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.practice.GenerateReference)
}

func (h *ApiHandler) GenerateStarter(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.practice.GenerateStarter)
}

func (h *ApiHandler) GeneratePractice(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, h.practice.GeneratePractice)
}

func (h *ApiHandler) generate(w http.ResponseWriter, r *http.Request, fn func(context.Context, int, int) (*practice.Generated, error)) {
	userID, lessonID, ok := h.lessonRequest(w, r)
	if !ok {
		return
	}
	out, err := fn(r.Context(), userID, lessonID)
	if err != nil {
		h.respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *ApiHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.PingContext(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			respondWithError(w, http.StatusServiceUnavailable, "Database unreachable")
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

func (h *ApiHandler) requireUser(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Invalid token (no user ID)")
	}
	return userID, ok
}

func (h *ApiHandler) lessonRequest(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return 0, 0, false
	}
	lessonID, err := strconv.Atoi(mux.Vars(r)["lesson_id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lesson ID")
		return 0, 0, false
	}
	return userID, lessonID, true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
