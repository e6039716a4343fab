package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"marker-map/internal/engine/actors"
	"marker-map/internal/middleware"
	"marker-map/internal/models"

	"github.com/google/uuid"
)

// AdminLoginRequest exchanges the admin key for a moderation token.
type AdminLoginRequest struct {
	Key string `json:"key"`
}

// ModerateRequest approves or rejects a pending marker.
type ModerateRequest struct {
	MarkerID string `json:"markerId"`
	Approve  bool   `json:"approve"`
}

// isModerator reports whether the request carries the moderation
// capability: either the resolved user has the admin role, or a valid
// moderation token is presented. The marker store itself never checks.
func (s *Server) isModerator(r *http.Request, user *models.User) bool {
	if user != nil && user.Role == models.RoleAdmin {
		return true
	}
	token := middleware.TokenFromRequest(r)
	if token == "" {
		return false
	}
	if _, err := s.AdminAuth.ValidateToken(token); err != nil {
		log.Printf("Moderation token rejected: %v", err)
		return false
	}
	return true
}

// HandleAdminLogin verifies the admin key and issues a moderation token.
func (s *Server) HandleAdminLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req AdminLoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if err := s.AdminAuth.VerifyKey(req.Key); err != nil {
			http.Error(w, "Invalid admin key", http.StatusUnauthorized)
			return
		}

		token, err := s.AdminAuth.GenerateToken(clientID(r))
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// HandlePendingMarkers returns the moderation queue.
func (s *Server) HandlePendingMarkers() http.HandlerFunc {
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
		if !s.isModerator(r, user) {
			http.Error(w, "Moderator capability required", http.StatusForbidden)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetMarkerActor(), &actors.ListPendingMsg{}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to list pending markers", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleModerate moves a pending marker to active or rejected.
func (s *Server) HandleModerate() http.HandlerFunc {
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
		if !s.isModerator(r, user) {
			http.Error(w, "Moderator capability required", http.StatusForbidden)
			return
		}

		var req ModerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		markerID, err := uuid.Parse(req.MarkerID)
		if err != nil {
			http.Error(w, "Invalid marker ID format", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetMarkerActor(),
			&actors.ModerateMarkerMsg{MarkerID: markerID, Approve: req.Approve}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to moderate marker", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}
