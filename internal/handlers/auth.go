package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/model"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/internal/validation"
)

// AuthHandler handles registration, login and session introspection.
type AuthHandler struct {
	storage    storage.Storage
	sessions   *auth.SessionStore
	sessionTTL time.Duration
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(store storage.Storage, sessions *auth.SessionStore, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		storage:    store,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("ERROR: failed to hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "회원가입에 실패했습니다")
		return
	}

	user := &model.User{
		Username: req.Username,
		Password: hash,
	}
	if err := h.storage.CreateUser(user); err != nil {
		if errors.Is(err, storage.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "이미 사용 중인 사용자명입니다")
			return
		}
		log.Printf("ERROR: failed to create user: %v", err)
		writeError(w, http.StatusInternalServerError, "회원가입에 실패했습니다")
		return
	}

	token := h.sessions.Create(user.ID)
	auth.SetSessionCookie(w, token, h.sessionTTL)

	log.Printf("AUTH: user registered - Username: %s, IP: %s", user.Username, r.RemoteAddr)
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID.String(), Username: user.Username})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 요청입니다")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "사용자명과 비밀번호를 입력하세요")
		return
	}

	user, err := h.storage.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "사용자명 또는 비밀번호가 틀립니다")
			return
		}
		log.Printf("ERROR: failed to look up user: %v", err)
		writeError(w, http.StatusInternalServerError, "로그인에 실패했습니다")
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		log.Printf("SECURITY: failed login - Username: %s, IP: %s", req.Username, r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "사용자명 또는 비밀번호가 틀립니다")
		return
	}

	token := h.sessions.Create(user.ID)
	auth.SetSessionCookie(w, token, h.sessionTTL)

	log.Printf("AUTH: user logged in - Username: %s, IP: %s", user.Username, r.RemoteAddr)
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID.String(), Username: user.Username})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		h.sessions.Destroy(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me handles GET /api/auth/me. It sits outside the auth middleware so it
// can answer 401 with the login-required message instead of redirect noise.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return
	}
	userID, ok := h.sessions.Get(cookie.Value)
	if !ok {
		writeError(w, http.StatusUnauthorized, "로그인이 필요합니다")
		return
	}

	user, err := h.storage.GetUser(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "사용자를 찾을 수 없습니다")
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID.String(), Username: user.Username})
}
