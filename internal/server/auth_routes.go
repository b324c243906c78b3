package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/baljotchohan/Trade-Track-App/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stateCookie carries the OIDC state and nonce between the login redirect
// and the provider callback. It lives just long enough for one round trip.
const stateCookie = "tt_oauth_state"

// handleLogin begins the OIDC authorization-code flow.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	nonce := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state + "." + nonce,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, s.provider.AuthCodeURL(state, nonce), http.StatusFound)
}

// handleCallback finishes the code flow: verify state, exchange the code,
// verify the ID token, upsert the user, and start a session.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing login state")
		return
	}
	state, nonce, ok := strings.Cut(cookie.Value, ".")
	if !ok || state != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "login state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	rawToken, err := s.provider.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("Token exchange failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	claims, err := s.provider.VerifyIDToken(r.Context(), rawToken, nonce)
	if err != nil {
		s.logger.Error("ID token verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	user := &models.User{
		ID:              claims.Subject,
		Email:           optional(claims.Email),
		FirstName:       optional(claims.GivenName),
		LastName:        optional(claims.FamilyName),
		ProfileImageURL: optional(claims.ProfileImageURL),
	}
	if _, err := s.repo.UpsertUser(r.Context(), user); err != nil {
		s.logger.Error("Failed to upsert user on login", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	// One-shot cookie; drop it now that the round trip is complete.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.logger.Info("User logged in", zap.String("user_id", user.ID))
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout destroys the session and sends the user to the provider's
// end-session endpoint when it publishes one.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.logger.Error("Failed to delete session on logout", zap.Error(err))
		}
	}
	http.SetCookie(w, &http.Cookie{Name: s.cookieName, Path: "/", MaxAge: -1})

	target := s.provider.EndSessionURL("/")
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
