package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"marker-map/internal/config"
	"marker-map/internal/database"
	"marker-map/internal/engine"
	"marker-map/internal/engine/actors"
	"marker-map/internal/middleware"
	"marker-map/internal/models"
	"marker-map/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	MongoDB        *database.MongoDB
	Admin          *config.AdminConfig
	AdminAuth      *middleware.AdminAuth
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	context *actor.RootContext,
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	mongodb *database.MongoDB,
	adminCfg *config.AdminConfig,
	adminAuth *middleware.AdminAuth,
) *Server {
	return &Server{
		System:         system,
		Context:        context,
		Engine:         eng,
		Metrics:        metrics,
		MongoDB:        mongodb,
		Admin:          adminCfg,
		AdminAuth:      adminAuth,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// Routes registers every handler on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.instrument(h))
	}

	handle("/health", s.HandleHealth())
	handle("/client/init", s.HandleClientInit())
	handle("/markers", s.HandleMarkers())
	handle("/markers/confirm", s.HandleConfirm())
	handle("/markers/comment", s.HandleComment())
	handle("/markers/rate", s.HandleRate())
	handle("/markers/my", s.HandleMyMarkers())
	handle("/markers/pending", s.HandlePendingMarkers())
	handle("/markers/moderate", s.HandleModerate())
	handle("/markers/{markerID}", s.HandleMarkerDetail())
	handle("/leaderboard", s.HandleLeaderboard())
	handle("/map_styles", s.HandleMapStyles())
	handle("/user", s.HandleUpdateUser())
	handle("/user/claim_daily", s.HandleClaimDaily())
	handle("/user/activate_pro", s.HandleActivatePro())
	handle("/user/grant_pro_trial", s.HandleGrantProTrial())
	handle("/user/is_top10_free_pro", s.HandleIsTopFreePro())
	handle("/user/is_admin", s.HandleIsAdmin())
	handle("/admin/login", s.HandleAdminLogin())
	handle("/payments/create", s.HandleCreatePayment())
	handle("/payments/status", s.HandlePaymentStatus())
	handle("/payments/enot/webhook", s.HandleEnotWebhook())
	handle("/subscriptions/me", s.HandleMySubscriptions())

	return mux
}

// instrument counts every request into the metrics collector.
func (s *Server) instrument(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()
		h(w, r)
	}
}

// clientID extracts the caller identity from the request, falling back
// to the local sentinel for dev use.
func clientID(r *http.Request) string {
	id := r.URL.Query().Get("client_id")
	if id == "" {
		return actors.LocalClientID
	}
	return id
}

// resolveClient gets or creates the user record for the caller. Every
// operation resolves identity first, so engagement from a never-seen
// client id still lands on a real user record.
func (s *Server) resolveClient(r *http.Request) (*models.User, *utils.AppError) {
	future := s.Context.RequestFuture(
		s.Engine.GetUserSupervisor(),
		&actors.ResolveUserMsg{ClientID: clientID(r)},
		s.RequestTimeout,
	)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewAppError(utils.ErrActorTimeout, "Failed to resolve user", err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	user, ok := result.(*models.User)
	if !ok {
		return nil, utils.NewAppError(utils.ErrDatabase, "Unexpected resolve response", nil)
	}
	return user, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeAppError maps an application error to an HTTP error response.
func (s *Server) writeAppError(w http.ResponseWriter, appErr *utils.AppError) {
	s.Metrics.IncrementErrors()
	http.Error(w, appErr.Error(), utils.AppErrorToHTTPStatus(appErr.Code))
}

// respondActorResult handles the common pattern of forwarding an actor
// response: application errors map to HTTP errors, anything else is
// encoded as JSON.
func (s *Server) respondActorResult(w http.ResponseWriter, result interface{}) {
	if appErr, ok := result.(*utils.AppError); ok {
		s.writeAppError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleHealth reports engine counts and metrics.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		futureMarkers := s.Context.RequestFuture(s.Engine.GetMarkerActor(), &actors.GetCountsMsg{}, s.RequestTimeout)
		markerResult, err := futureMarkers.Result()
		if err != nil {
			http.Error(w, "Failed to get marker count", http.StatusInternalServerError)
			return
		}

		futureUsers := s.Context.RequestFuture(s.Engine.GetUserSupervisor(), &actors.GetCountsMsg{}, s.RequestTimeout)
		userResult, err := futureUsers.Result()
		if err != nil {
			http.Error(w, "Failed to get user count", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "healthy",
			"marker_count": markerResult,
			"user_count":   userResult,
			"metrics":      s.Metrics.Snapshot(),
			"server_time":  time.Now(),
		})
	}
}
