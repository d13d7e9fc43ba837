package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/gatherly/internal/database"
	"github.com/gatherly/gatherly/internal/server/handlers"
)

const (
	rsvpSessionName = "rsvp-session"
	rsvpTokenHeader = "X-RSVP-Token"
)

type authClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Server) mintToken(user *database.User) (string, error) {
	now := time.Now()
	claims := &authClaims{
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Server) parseToken(tokenString string) (*authClaims, error) {
	claims := &authClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// CurrentUser implements handlers.Server interface. It returns the verified
// user id and username from the bearer token, or empty strings for an
// anonymous request. On public routes a bad token just means anonymous.
func (s *Server) CurrentUser(r *http.Request) (string, string) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ""
	}

	claims, err := s.parseToken(token)
	if err != nil {
		return "", ""
	}

	return claims.Subject, claims.Username
}

// AnonToken implements handlers.Server interface. The request header wins
// over the cookie fallback.
func (s *Server) AnonToken(r *http.Request, invitationID string) string {
	if token := r.Header.Get(rsvpTokenHeader); token != "" {
		return token
	}

	session, _ := s.sessionStore.Get(r, rsvpSessionName)
	token, _ := session.Values[invitationID].(string)
	return token
}

// SaveAnonToken implements handlers.Server interface. Minted tokens are also
// persisted in a cookie keyed by invitation id, so browser clients without
// scripting keep their identity across page loads. Must be called before the
// response body is written.
func (s *Server) SaveAnonToken(w http.ResponseWriter, r *http.Request, invitationID, token string) {
	session, _ := s.sessionStore.Get(r, rsvpSessionName)
	session.Values[invitationID] = token
	if err := session.Save(r, w); err != nil {
		slog.Warn("failed to save rsvp session", "error", err)
	}
}

// requireAuth is a middleware that rejects requests without a valid bearer
// token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := s.CurrentUser(r)
		if userID == "" {
			handlers.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r)
	}
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func publicUser(user *database.User) userPayload {
	return userPayload{ID: user.ID, Username: user.Username, Email: user.Email}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Register failed")
		return
	}

	user, err := s.db.CreateUser(req.Username, req.Email, string(hash))
	if errors.Is(err, database.ErrDuplicateUser) {
		handlers.WriteError(w, http.StatusConflict, "Username or email taken")
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Register failed")
		return
	}

	s.writeAuthResponse(w, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"` // username or email
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		handlers.WriteError(w, http.StatusBadRequest, "Missing fields")
		return
	}

	user, err := s.db.GetUserByLogin(req.Identifier)
	if errors.Is(err, database.ErrNotFound) {
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		handlers.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	s.writeAuthResponse(w, user)
}

func (s *Server) writeAuthResponse(w http.ResponseWriter, user *database.User) {
	token, err := s.mintToken(user)
	if err != nil {
		slog.Error("failed to mint token", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  publicUser(user),
		"token": token,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := s.CurrentUser(r)

	user, err := s.db.GetUserByID(userID)
	if err != nil {
		slog.Error("failed to load user", "id", userID, "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": publicUser(user)})
}
