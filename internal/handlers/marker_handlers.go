package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"marker-map/internal/engine/actors"
	"marker-map/internal/models"
	"marker-map/internal/scoring"
	"marker-map/internal/utils"

	"github.com/google/uuid"
)

// SubmitMarkerRequest represents a request to submit a new marker
type SubmitMarkerRequest struct {
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    *models.Location   `json:"location"`
	Media       []models.MediaItem `json:"media"`
}

// MarkerActionRequest targets an existing marker.
type MarkerActionRequest struct {
	MarkerID string `json:"markerId"`
	Text     string `json:"text,omitempty"`  // comment
	Value    int    `json:"value,omitempty"` // rating
}

// HandleMarkers lists active markers (GET) or submits a new one (POST).
func (s *Server) HandleMarkers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, appErr := s.resolveClient(r)
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		switch r.Method {
		case http.MethodGet:
			var types []string
			if raw := r.URL.Query().Get("types"); raw != "" {
				types = strings.Split(raw, ",")
			}

			future := s.Context.RequestFuture(s.Engine.GetMarkerActor(),
				&actors.ListActiveMsg{Types: types}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to list markers", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		case http.MethodPost:
			var req SubmitMarkerRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request", http.StatusBadRequest)
				return
			}

			future := s.Context.RequestFuture(s.Engine.GetMarkerActor(), &actors.SubmitMarkerMsg{
				Author: user.ID,
				Draft: actors.MarkerDraft{
					Type:        models.MarkerType(req.Type),
					Title:       req.Title,
					Description: req.Description,
					Location:    req.Location,
					Media:       req.Media,
				},
			}, s.RequestTimeout)
			result, err := future.Result()
			if err != nil {
				http.Error(w, "Failed to submit marker", http.StatusInternalServerError)
				return
			}
			s.respondActorResult(w, result)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// markerAction decodes the target marker id and forwards msg built from
// it to the marker actor.
func (s *Server) markerAction(build func(userID string, markerID uuid.UUID, req *MarkerActionRequest) interface{}) http.HandlerFunc {
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

		var req MarkerActionRequest
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
			build(user.ID, markerID, &req), s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to process marker action", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleConfirm adds the caller's confirmation to a marker.
func (s *Server) HandleConfirm() http.HandlerFunc {
	return s.markerAction(func(userID string, markerID uuid.UUID, _ *MarkerActionRequest) interface{} {
		return &actors.ConfirmMarkerMsg{UserID: userID, MarkerID: markerID}
	})
}

// HandleComment appends a comment to a marker.
func (s *Server) HandleComment() http.HandlerFunc {
	return s.markerAction(func(userID string, markerID uuid.UUID, req *MarkerActionRequest) interface{} {
		return &actors.CommentMarkerMsg{UserID: userID, MarkerID: markerID, Text: req.Text}
	})
}

// HandleRate upserts the caller's rating of a marker.
func (s *Server) HandleRate() http.HandlerFunc {
	return s.markerAction(func(userID string, markerID uuid.UUID, req *MarkerActionRequest) interface{} {
		return &actors.RateMarkerMsg{UserID: userID, MarkerID: markerID, Value: req.Value}
	})
}

// MarkerDetailResponse is a marker plus the caller-relative rating view.
type MarkerDetailResponse struct {
	*models.Marker
	RatingAvg float64 `json:"ratingAvg"`
	MyRating  int     `json:"myRating"`
}

// HandleMarkerDetail returns one marker with its comments, the mean
// rating, and the caller's own rating (0 when unrated).
func (s *Server) HandleMarkerDetail() http.HandlerFunc {
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

		markerID, err := uuid.Parse(r.PathValue("markerID"))
		if err != nil {
			http.Error(w, "Invalid marker ID format", http.StatusBadRequest)
			return
		}

		future := s.Context.RequestFuture(s.Engine.GetMarkerActor(),
			&actors.GetMarkerMsg{MarkerID: markerID}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to get marker", http.StatusInternalServerError)
			return
		}
		if appErr, ok := result.(*utils.AppError); ok {
			s.writeAppError(w, appErr)
			return
		}

		marker, ok := result.(*models.Marker)
		if !ok {
			http.Error(w, "Unexpected marker response", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, &MarkerDetailResponse{
			Marker:    marker,
			RatingAvg: marker.RatingAverage(),
			MyRating:  marker.RatingsBy[user.ID],
		})
	}
}

// HandleMyMarkers returns the caller's own markers split by status.
func (s *Server) HandleMyMarkers() http.HandlerFunc {
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

		future := s.Context.RequestFuture(s.Engine.GetMarkerActor(),
			&actors.ListByAuthorMsg{Author: user.ID}, s.RequestTimeout)
		result, err := future.Result()
		if err != nil {
			http.Error(w, "Failed to list own markers", http.StatusInternalServerError)
			return
		}
		s.respondActorResult(w, result)
	}
}

// HandleLeaderboard computes the engagement ranking on demand.
func (s *Server) HandleLeaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if _, appErr := s.resolveClient(r); appErr != nil {
			s.writeAppError(w, appErr)
			return
		}

		entries, appErr := s.leaderboard()
		if appErr != nil {
			s.writeAppError(w, appErr)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// leaderboard snapshots users and active markers and derives the
// ranking via the scoring projection.
func (s *Server) leaderboard() ([]scoring.Entry, *utils.AppError) {
	usersFuture := s.Context.RequestFuture(s.Engine.GetUserSupervisor(), &actors.ListUsersMsg{}, s.RequestTimeout)
	usersResult, err := usersFuture.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrActorTimeout, "Failed to snapshot users", err)
	}
	users, _ := usersResult.([]*models.User)

	markersFuture := s.Context.RequestFuture(s.Engine.GetMarkerActor(), &actors.SnapshotMsg{}, s.RequestTimeout)
	markersResult, err := markersFuture.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrActorTimeout, "Failed to snapshot markers", err)
	}
	markers, _ := markersResult.([]*models.Marker)

	return scoring.Leaderboard(users, markers), nil
}
