package server

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/sse-forum/auth"
	"github.com/jrsteele09/sse-forum/oauthmodel"
)

const (
	msgNoRefreshToken   = "No refresh token available. Please log in again."
	msgRefreshFailed    = "Failed to refresh token. Please log in again."
	msgRefreshed        = "Token refreshed successfully."
	msgAuthFailed       = "Authentication failed."
	msgInvalidSession   = "Invalid session ID"
	msgMissingCode      = "Missing authorization code or state"
	msgUnknownProvider  = "Unknown provider"
	msgProviderRejected = "Sign-in was rejected by the provider"
)

// IndexHandler serves the landing page with the sign-in button.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := StreamFile(w, r, indexPage); err != nil {
			s.logError(r, err, "Serve landing page")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

// SessionHandler issues a fresh pre-auth correlation id.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := uuid.NewString()
		s.setAuthSessionCookie(w, sessionID)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("session created with id: " + sessionID))
	}
}

// RequireForumAuth admits requests carrying an access token, silently
// refreshes when only a refresh token is present, and otherwise sends the
// browser to the provider.
func (s *Server) RequireForumAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := s.gatekeeper.Check(r.Context(), auth.Credentials{
			AccessToken:  cookieValue(r, cookieAccessToken),
			RefreshToken: cookieValue(r, cookieRefreshToken),
			SessionID:    cookieValue(r, cookieAuthSession),
		})
		if err != nil {
			s.logError(r, err, "Gatekeeper check")
			http.Error(w, msgAuthFailed, http.StatusInternalServerError)
			return
		}

		switch outcome.Decision {
		case auth.DecisionAdmit:
			next(w, r)
		case auth.DecisionRefreshed:
			s.setTokenCookies(w, outcome.Tokens)
			next(w, r)
		default:
			if outcome.NewSession {
				s.setAuthSessionCookie(w, outcome.SessionID)
			}
			redirectTo(w, r, outcome.RedirectURL)
		}
	}
}

// ForumHandler serves the chat page to admitted browsers.
func (s *Server) ForumHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := cookieValue(r, cookieSessionID)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		s.setForumCookies(w, sessionID)
		s.serveForum(w, r)
	}
}

// OAuthCallbackHandler completes sign-in and serves the forum page directly.
// A redirect would lose the strict cookies on a chain that began at the provider.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("provider") != s.gatekeeper.ProviderName() {
			http.Error(w, msgUnknownProvider, http.StatusNotFound)
			return
		}

		q := r.URL.Query()
		if providerErr := q.Get("error"); providerErr != "" {
			description := q.Get("error_description")
			if description == "" {
				description = providerErr
			}
			s.logger.Warn().Str("error", providerErr).Str("description", description).Msg("Provider returned an error")
			http.Error(w, description, http.StatusBadRequest)
			return
		}

		result, err := s.gatekeeper.Callback(r.Context(), q.Get("state"), q.Get("code"))
		switch {
		case err == nil:
		case errors.Is(err, oauthmodel.ErrMissingCode):
			http.Error(w, msgMissingCode, http.StatusBadRequest)
			return
		case errors.Is(err, oauthmodel.ErrInvalidSession):
			s.logger.Warn().Err(err).Msg("Callback with unknown state")
			http.Error(w, msgInvalidSession, http.StatusBadRequest)
			return
		case oauthmodel.IsProviderError(err):
			s.logger.Warn().Err(err).Msg(msgProviderRejected)
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		default:
			s.logError(r, err, "Callback")
			http.Error(w, msgAuthFailed, http.StatusInternalServerError)
			return
		}

		ttl := s.profileTTL(result.Tokens)
		identityToken, err := s.identity.Issue(result.Identity, ttl)
		if err != nil {
			s.logError(r, err, "Issue identity cookie")
			http.Error(w, msgAuthFailed, http.StatusInternalServerError)
			return
		}

		s.setTokenCookies(w, result.Tokens)
		s.setProfileCookies(w, result.Identity, ttl)
		s.setCookie(w, cookieIdentity, identityToken, cookieOptions{
			httpOnly: true,
			sameSite: http.SameSiteStrictMode,
			maxAge:   ttl,
		})
		s.setForumCookies(w, uuid.NewString())
		s.serveForum(w, r)
	}
}

// RefreshHandler trades the refresh cookie for a new access cookie.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := s.gatekeeper.Refresh(r.Context(), cookieValue(r, cookieRefreshToken))
		switch {
		case err == nil:
		case errors.Is(err, oauthmodel.ErrNoRefreshToken):
			http.Error(w, msgNoRefreshToken, http.StatusUnauthorized)
			return
		case oauthmodel.IsProviderError(err):
			s.logger.Info().Err(err).Msg("Refresh rejected")
			http.Error(w, msgRefreshFailed, http.StatusUnauthorized)
			return
		default:
			s.logError(r, err, "Refresh")
			http.Error(w, msgAuthFailed, http.StatusInternalServerError)
			return
		}

		s.setTokenCookies(w, tokens)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(msgRefreshed))
	}
}

func (s *Server) UpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}
}

// preflightHandler answers OPTIONS requests without an Origin header; the
// CORS middleware handles the rest.
func (s *Server) preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serveForum(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if err := StreamFile(w, r, forumPage); err != nil {
		s.logError(r, err, "Serve forum page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) logError(r *http.Request, err error, msg string) {
	s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(msg)
}

func containsMediaType(header, want string) bool {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == want {
			return true
		}
	}
	return false
}
