package api

import (
	"net/http"

	"github.com/docmarkapp/docmark-server/internal/http/response"
	"github.com/docmarkapp/docmark-server/internal/service"
)

// handleGoogleLogin redirects the browser to Google's consent screen
// with a signed state parameter.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.BeginLogin()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleGoogleCallback finishes the OAuth code flow: verifies the state,
// exchanges the code, upserts the user and issues a session token. The
// token travels as an HttpOnly cookie and in the response body for API
// clients.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errMsg := query.Get("error"); errMsg != "" {
		response.Unauthorized(w, "Google sign-in was denied", s.logger)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		response.BadRequest(w, "Missing code or state parameter", s.logger)
		return
	}

	result, err := s.auth.CompleteLogin(r.Context(), code, state)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	s.setSessionCookie(w, result.SessionToken)
	response.Success(w, map[string]any{
		"user":          result.User,
		"session_token": result.SessionToken,
		"is_new_user":   result.IsNewUser,
	}, s.logger)
}

// handleGetMe returns the authenticated user.
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	response.Success(w, currentUser(r.Context()), s.logger)
}

// handleLogout clears the session cookie. Tokens are stateless, so the
// cookie clear is all there is to revoke for browser clients.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
	response.Success(w, map[string]string{"message": "logged out"}, s.logger)
}

type updateSettingsRequest struct {
	WatchFolderID *string  `json:"watch_folder_id"`
	Palette       []string `json:"palette"`
}

// handleUpdateSettings updates the watch folder and color palette.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	user := currentUser(r.Context())
	updated, err := s.auth.UpdateSettings(r.Context(), user.ID, service.SettingsUpdate{
		WatchFolderID: req.WatchFolderID,
		Palette:       req.Palette,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, updated, s.logger)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.auth.SessionDuration().Seconds()),
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
}
