package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"taskwing/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

// handleLogin is the demo login/register endpoint: any credentials are
// accepted and the user identity is derived from the email local part.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		s.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	uid := auth.UserIDFromEmail(req.Email)
	token, err := s.authn.IssueToken(uid)
	if err != nil {
		s.logger.Error("issuing token", zap.String("user_id", uid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      uid,
	})
}
