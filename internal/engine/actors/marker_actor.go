package actors

import (
	"log"
	"time"

	"marker-map/internal/database"
	"marker-map/internal/models"
	"marker-map/internal/utils"

	stdctx "context"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Point awards for engagement actions.
const (
	submitPoints  = 5
	confirmPoints = 2
	commentPoints = 1
	ratePoints    = 1
)

// Message types for Marker operations
type (
	// MarkerDraft carries the caller-supplied fields of a submission.
	MarkerDraft struct {
		Type        models.MarkerType
		Title       string
		Description string
		Location    *models.Location
		Media       []models.MediaItem
	}

	SubmitMarkerMsg struct {
		Author string
		Draft  MarkerDraft
	}

	ListActiveMsg struct {
		Types []string // empty means all types
	}

	ConfirmMarkerMsg struct {
		UserID   string
		MarkerID uuid.UUID
	}

	CommentMarkerMsg struct {
		UserID   string
		MarkerID uuid.UUID
		Text     string
	}

	RateMarkerMsg struct {
		UserID   string
		MarkerID uuid.UUID
		Value    int
	}

	ModerateMarkerMsg struct {
		MarkerID uuid.UUID
		Approve  bool
	}

	ListPendingMsg struct{}

	ListByAuthorMsg struct {
		Author string
	}

	GetMarkerMsg struct {
		MarkerID uuid.UUID
	}

	// SnapshotMsg returns copies of all active markers for the scoring
	// projection.
	SnapshotMsg struct{}

	GetCountsMsg struct{}
)

// OwnMarkers is the response to ListByAuthorMsg.
type OwnMarkers struct {
	Active  []*models.Marker `json:"active"`
	Pending []*models.Marker `json:"pending"`
}

// MarkerActor owns all markers and the moderation queue. Engagement
// point awards are routed to the engine, which forwards them to the
// user supervisor.
type MarkerActor struct {
	markersByID map[uuid.UUID]*models.Marker
	order       []uuid.UUID // insertion order, keeps listings stable
	pending     []uuid.UUID // moderation queue, oldest first
	metrics     *utils.MetricsCollector
	enginePID   *actor.PID
	mongodb     *database.MongoDB
}

// NewMarkerActor creates a new MarkerActor instance
func NewMarkerActor(metrics *utils.MetricsCollector, enginePID *actor.PID, mongodb *database.MongoDB) actor.Actor {
	return &MarkerActor{
		markersByID: make(map[uuid.UUID]*models.Marker),
		order:       make([]uuid.UUID, 0),
		pending:     make([]uuid.UUID, 0),
		metrics:     metrics,
		enginePID:   enginePID,
		mongodb:     mongodb,
	}
}

// Receive handles incoming messages
func (a *MarkerActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.loadFromDatabase()

	case *actor.Stopping:
		log.Printf("MarkerActor stopping")

	case *SubmitMarkerMsg:
		a.handleSubmit(context, msg)
	case *ListActiveMsg:
		a.handleListActive(context, msg)
	case *ConfirmMarkerMsg:
		a.handleConfirm(context, msg)
	case *CommentMarkerMsg:
		a.handleComment(context, msg)
	case *RateMarkerMsg:
		a.handleRate(context, msg)
	case *ModerateMarkerMsg:
		a.handleModerate(context, msg)

	case *ListPendingMsg:
		queue := make([]*models.Marker, 0, len(a.pending))
		for _, id := range a.pending {
			if m := a.markersByID[id]; m != nil {
				queue = append(queue, copyMarker(m))
			}
		}
		context.Respond(queue)

	case *ListByAuthorMsg:
		own := &OwnMarkers{
			Active:  make([]*models.Marker, 0),
			Pending: make([]*models.Marker, 0),
		}
		for _, id := range a.order {
			m := a.markersByID[id]
			if m == nil || m.CreatedBy != msg.Author {
				continue
			}
			switch m.Status {
			case models.StatusActive:
				own.Active = append(own.Active, copyMarker(m))
			case models.StatusPending:
				own.Pending = append(own.Pending, copyMarker(m))
			}
		}
		context.Respond(own)

	case *GetMarkerMsg:
		if marker, exists := a.markersByID[msg.MarkerID]; exists {
			context.Respond(copyMarker(marker))
		} else {
			context.Respond(utils.NewMarkerNotFoundError(msg.MarkerID.String()))
		}

	case *SnapshotMsg:
		markers := make([]*models.Marker, 0, len(a.order))
		for _, id := range a.order {
			if m := a.markersByID[id]; m != nil && m.Status == models.StatusActive {
				markers = append(markers, copyMarker(m))
			}
		}
		context.Respond(markers)

	case *GetCountsMsg:
		context.Respond(len(a.markersByID))

	default:
		log.Printf("MarkerActor: Unknown message type: %T", msg)
	}
}

func (a *MarkerActor) handleSubmit(context actor.Context, msg *SubmitMarkerMsg) {
	startTime := time.Now()

	if msg.Draft.Type == "" || msg.Draft.Title == "" || msg.Draft.Location == nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Type, title and location are required", nil))
		return
	}
	if !models.KnownMarkerType(msg.Draft.Type) {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Unknown marker type: "+string(msg.Draft.Type), nil))
		return
	}

	newMarker := &models.Marker{
		ID:              uuid.New(),
		Type:            msg.Draft.Type,
		Title:           msg.Draft.Title,
		Description:     msg.Draft.Description,
		Location:        *msg.Draft.Location,
		Media:           msg.Draft.Media,
		CreatedBy:       msg.Author,
		CreatedAt:       time.Now(),
		Status:          models.StatusPending,
		Confirmations:   0,
		ConfirmationsBy: make([]string, 0),
		Comments:        make([]models.Comment, 0),
		RatingsBy:       make(map[string]int),
	}

	a.markersByID[newMarker.ID] = newMarker
	a.order = append(a.order, newMarker.ID)
	a.pending = append(a.pending, newMarker.ID)
	a.persist(newMarker)

	// Submission bonus is paid up front, before moderation.
	context.Send(a.enginePID, &AddPointsMsg{UserID: msg.Author, Delta: submitPoints, Activity: "create_marker"})

	a.metrics.AddOperationLatency("submit_marker", time.Since(startTime))
	context.Respond(copyMarker(newMarker))
}

func (a *MarkerActor) handleListActive(context actor.Context, msg *ListActiveMsg) {
	allowed := make(map[models.MarkerType]bool, len(msg.Types))
	for _, t := range msg.Types {
		allowed[models.MarkerType(t)] = true
	}

	markers := make([]*models.Marker, 0)
	for _, id := range a.order {
		m := a.markersByID[id]
		if m == nil || m.Status != models.StatusActive {
			continue
		}
		if len(allowed) > 0 && !allowed[m.Type] {
			continue
		}
		markers = append(markers, copyMarker(m))
	}
	context.Respond(markers)
}

func (a *MarkerActor) handleConfirm(context actor.Context, msg *ConfirmMarkerMsg) {
	startTime := time.Now()

	marker, exists := a.markersByID[msg.MarkerID]
	if !exists || marker.Status != models.StatusActive {
		context.Respond(utils.NewMarkerNotFoundError(msg.MarkerID.String()))
		return
	}

	// One confirmation per user; a repeat is a no-op.
	if !marker.ConfirmedBy(msg.UserID) {
		marker.ConfirmationsBy = append(marker.ConfirmationsBy, msg.UserID)
		marker.Confirmations = len(marker.ConfirmationsBy)
		a.persist(marker)
		context.Send(a.enginePID, &AddPointsMsg{UserID: msg.UserID, Delta: confirmPoints, Activity: "confirm"})
	}

	a.metrics.AddOperationLatency("confirm_marker", time.Since(startTime))
	context.Respond(copyMarker(marker))
}

func (a *MarkerActor) handleComment(context actor.Context, msg *CommentMarkerMsg) {
	startTime := time.Now()

	if msg.Text == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Comment text is required", nil))
		return
	}

	marker, exists := a.markersByID[msg.MarkerID]
	if !exists || marker.Status != models.StatusActive {
		context.Respond(utils.NewMarkerNotFoundError(msg.MarkerID.String()))
		return
	}

	marker.Comments = append(marker.Comments, models.Comment{
		ID:        uuid.New(),
		UserID:    msg.UserID,
		Text:      msg.Text,
		CreatedAt: time.Now(),
	})
	a.persist(marker)
	context.Send(a.enginePID, &AddPointsMsg{UserID: msg.UserID, Delta: commentPoints, Activity: "comment"})

	a.metrics.AddOperationLatency("comment_marker", time.Since(startTime))
	context.Respond(copyMarker(marker))
}

func (a *MarkerActor) handleRate(context actor.Context, msg *RateMarkerMsg) {
	startTime := time.Now()

	marker, exists := a.markersByID[msg.MarkerID]
	if !exists || marker.Status != models.StatusActive {
		context.Respond(utils.NewMarkerNotFoundError(msg.MarkerID.String()))
		return
	}

	value := msg.Value
	if value < 1 {
		value = 1
	}
	if value > 5 {
		value = 5
	}

	_, rated := marker.RatingsBy[msg.UserID]
	marker.RatingsBy[msg.UserID] = value
	a.persist(marker)

	// The award applies to the first rating only; re-rates just
	// overwrite the value.
	if !rated {
		context.Send(a.enginePID, &AddPointsMsg{UserID: msg.UserID, Delta: ratePoints, Activity: "rate"})
	}

	a.metrics.AddOperationLatency("rate_marker", time.Since(startTime))
	context.Respond(copyMarker(marker))
}

func (a *MarkerActor) handleModerate(context actor.Context, msg *ModerateMarkerMsg) {
	startTime := time.Now()

	idx := -1
	for i, id := range a.pending {
		if id == msg.MarkerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		// Already moderated or never submitted; the transition fires
		// exactly once.
		context.Respond(utils.NewMarkerNotFoundError(msg.MarkerID.String()))
		return
	}

	a.pending = append(a.pending[:idx], a.pending[idx+1:]...)
	marker := a.markersByID[msg.MarkerID]
	if msg.Approve {
		marker.Status = models.StatusActive
	} else {
		marker.Status = models.StatusRejected
	}
	a.persist(marker)

	a.metrics.AddOperationLatency("moderate_marker", time.Since(startTime))
	context.Respond(copyMarker(marker))
}

func (a *MarkerActor) loadFromDatabase() {
	if a.mongodb == nil {
		return
	}
	ctx := stdctx.Background()
	markers, err := a.mongodb.ListMarkers(ctx)
	if err != nil {
		log.Printf("MarkerActor: failed to load markers: %v", err)
		return
	}
	for _, m := range markers {
		a.markersByID[m.ID] = m
		a.order = append(a.order, m.ID)
		if m.Status == models.StatusPending {
			a.pending = append(a.pending, m.ID)
		}
	}
	log.Printf("MarkerActor: loaded %d markers", len(markers))
}

func (a *MarkerActor) persist(marker *models.Marker) {
	if a.mongodb == nil {
		return
	}
	ctx := stdctx.Background()
	if err := a.mongodb.SaveMarker(ctx, marker); err != nil {
		log.Printf("MarkerActor: failed to save marker %s: %v", marker.ID, err)
	}
}

// copyMarker returns a deep enough copy that responders never share
// mutable slices or maps with the actor.
func copyMarker(m *models.Marker) *models.Marker {
	copied := *m
	copied.ConfirmationsBy = append([]string(nil), m.ConfirmationsBy...)
	copied.Comments = append([]models.Comment(nil), m.Comments...)
	copied.RatingsBy = make(map[string]int, len(m.RatingsBy))
	for k, v := range m.RatingsBy {
		copied.RatingsBy[k] = v
	}
	return &copied
}
