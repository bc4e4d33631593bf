package server

import (
	"log/slog"
	"net/http"

	"github.com/pauljones0/deals-storefront/internal/models"
)

type sessionResponse struct {
	User       *models.UserProfile `json:"user"`
	Curator    bool                `json:"curator"`
	Authorized bool                `json:"authorized"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Credential string `json:"credential"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := s.auth.Login(r.Context(), req.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	authorized := false
	if visitor := visitorFrom(r.Context()); visitor != "" {
		if err := s.state.SetAuthorized(r.Context(), visitor, true); err != nil {
			slog.Warn("Failed to remember sign-in", "visitor", visitor, "error", err)
		} else {
			authorized = true
		}
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		User:       profile,
		Curator:    s.auth.IsCurator(profile.Email),
		Authorized: authorized,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if visitor := visitorFrom(r.Context()); visitor != "" {
		if err := s.state.SetAuthorized(r.Context(), visitor, false); err != nil {
			slog.Warn("Failed to clear sign-in", "visitor", visitor, "error", err)
		}
	}
	s.auth.Logout(userFrom(r.Context()).Subject)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	var resp sessionResponse
	if visitor := visitorFrom(r.Context()); visitor != "" {
		ok, err := s.state.Authorized(r.Context(), visitor)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Authorized = ok
	}
	if c := userFrom(r.Context()); c.Subject != "" {
		resp.User = &models.UserProfile{UID: c.Subject, DisplayName: c.Name, Email: c.Email, PhotoURL: c.PictureURL}
		resp.Curator = s.auth.IsCurator(c.Email)
	}
	writeJSON(w, http.StatusOK, resp)
}
