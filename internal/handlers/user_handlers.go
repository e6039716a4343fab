package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"marker-map/internal/engine/actors"
	"marker-map/internal/models"
	"marker-map/internal/scoring"
)

// InitClientRequest carries the opaque client identifier.
type InitClientRequest struct {
	ClientID string `json:"clientId"`
}

// UpdateUserRequest is a settings patch. Only explicit fields are
// accepted; there is no generic shape merging.
type UpdateUserRequest struct {
	MapStyle string `json:"mapStyle"`
}

// HandleClientInit resolves the caller's identity, creating the user
// record on first sight.
func (s *Server) HandleClientInit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// An empty body is allowed; the identity falls back to the
		// local sentinel.
		var req InitClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(
			s.Engine.GetUserSupervisor(),
			&actors.ResolveUserMsg{ClientID: req.ClientID},
			s.RequestTimeout,
		)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to resolve client", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleUpdateUser applies a settings patch. Pro-only map styles are
// rejected for non-PRO users.
func (s *Server) HandleUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		var req UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if req.MapStyle == "" {
			http.Error(w, "mapStyle is required", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetUserSupervisor(),
			&actors.UpdateSettingsMsg{UserID: user.ID, MapStyle: req.MapStyle}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to update settings", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// userOp resolves the caller and forwards a single message built from
// their id to the user supervisor.
func (s *Server) userOp(build func(userID string) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetUserSupervisor(), build(user.ID), s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to process request", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleClaimDaily awards the once-per-calendar-day bonus.
func (s *Server) HandleClaimDaily() http.HandlerFunc {
	return s.userOp(func(userID string) interface{} {
		return &actors.ClaimDailyMsg{UserID: userID, Now: time.Now()}
	})
}

// HandleActivatePro redeems 1000 points for one month of PRO.
func (s *Server) HandleActivatePro() http.HandlerFunc {
	return s.userOp(func(userID string) interface{} {
		return &actors.RedeemPointsMsg{UserID: userID}
	})
}

// HandleGrantProTrial grants the one-month trial entitlement.
func (s *Server) HandleGrantProTrial() http.HandlerFunc {
	return s.userOp(func(userID string) interface{} {
		return &actors.GrantTrialMsg{UserID: userID}
	})
}

// HandleIsTopFreePro reports whether the caller's leaderboard rank
// alone unlocks PRO.
func (s *Server) HandleIsTopFreePro() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		entries, appErr := s.leaderboard()
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{
			"isTopFreePro": scoring.IsTopNFreePro(entries, user.ID, scoring.FreeProRank),
		})
	}
}

// HandleIsAdmin reports whether the caller holds the moderation
// capability via the allow-list.
func (s *Server) HandleIsAdmin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{
			"isAdmin": user.Role == models.RoleAdmin,
		})
	}
}

// HandleMapStyles returns the style catalog.
func (s *Server) HandleMapStyles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, models.MapStyles())
	}
}
