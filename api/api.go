// api/api.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/neuralttt/gameserver/auth"
	"github.com/neuralttt/gameserver/logger"
	"github.com/neuralttt/gameserver/models"
	"github.com/neuralttt/gameserver/persistence"
	"github.com/neuralttt/gameserver/services"
)

const (
	bcryptCost = 12

	accessCookie  = "token"
	refreshCookie = "refreshToken"
	// 刷新 cookie 只随刷新请求发送
	refreshPath = "/api/v1/user/refresh"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// API 账号相关的 HTTP 接口：注册、登录、刷新、登出
type API struct {
	db      persistence.Database
	players *services.PlayerService
	jwt     *auth.JWTManager
	origin  string
}

func NewAPI(db persistence.Database, players *services.PlayerService, jwt *auth.JWTManager, allowedOrigin string) *API {
	return &API{db: db, players: players, jwt: jwt, origin: allowedOrigin}
}

// Router 绑定全部路由并套上 CORS 和访问日志
func (a *API) Router() http.Handler {
	r := mux.NewRouter()

	user := r.PathPrefix("/api/v1/user").Subrouter()
	user.HandleFunc("/signup", a.handleSignup).Methods("POST")
	user.HandleFunc("/login", a.handleLogin).Methods("POST")
	user.HandleFunc("/refresh", a.handleRefresh).Methods("GET")
	user.HandleFunc("/me", a.requireAuth(a.handleMe)).Methods("GET")
	user.HandleFunc("/logout", a.handleLogout).Methods("POST")

	r.HandleFunc("/api/v1/leaderboard", a.handleLeaderboard).Methods("GET")
	r.HandleFunc("/healthz", a.handleHealth).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{a.origin}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowCredentials(),
	)
	return cors(handlers.LoggingHandler(logWriter{}, r))
}

// logWriter 把 gorilla 的访问日志接进 zap
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.Log.Debug(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *signupRequest) validate() string {
	switch {
	case len(r.Username) < 3:
		return "Username must be 3+ characters"
	case len(r.Username) > 15:
		return "Username max 15 characters"
	case !usernamePattern.MatchString(r.Username):
		return "No special characters"
	case !strings.Contains(r.Email, "@"):
		return "Invalid email address"
	case len(r.Password) < 6:
		return "Password must be 6+ characters"
	}
	return ""
}

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if _, err := a.db.UserByName(req.Username); err == nil {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	if _, err := a.db.UserByEmail(req.Email); err == nil {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email, Password: string(hashed)}
	if err := a.db.CreateUser(user); err != nil {
		if errors.Is(err, persistence.ErrDuplicateUser) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		logger.Log.Errorw("signup failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.db.UserByEmail(req.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	access, err := a.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}
	refresh, err := a.jwt.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    access,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(a.jwt.AccessExpiry().Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refresh,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     refreshPath,
		MaxAge:   int(a.jwt.RefreshExpiry().Seconds()),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user": map[string]interface{}{
			"username": user.Username,
			"rank":     user.Rank,
			"wins":     user.Wins,
		},
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "No refresh token")
		return
	}

	access, err := a.jwt.RefreshAccessToken(cookie.Value)
	if err != nil {
		writeError(w, http.StatusForbidden, "Invalid refresh token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    access,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(a.jwt.AccessExpiry().Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// requireAuth 从访问令牌 cookie 解出用户名塞进 header 传给下游
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := a.jwt.ValidateAccessToken(cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		r.Header.Set("X-Username", claims.Username)
		next(w, r)
	}
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := a.players.Profile(r.Header.Get("X-Username"))
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"username": profile.Username,
			"rank":     profile.Rank,
			"wins":     profile.Wins,
		},
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: accessCookie, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "", Path: refreshPath, MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.players.Leaderboard()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
