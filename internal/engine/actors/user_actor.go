package actors

import (
	"fmt"
	"log"
	"sync"
	"time"

	"marker-map/internal/database"
	"marker-map/internal/models"
	"marker-map/internal/utils"

	stdctx "context"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// LocalClientID is the sentinel identity used when a request carries no
// client id (local/dev use).
const LocalClientID = "local"

const (
	seedPoints        = 50
	dailyRewardPoints = 10
	proPointsCost     = 1000
)

// UserSupervisor manages all user actors, one per client id.
type UserSupervisor struct {
	userActors map[string]*actor.PID
	order      []string // resolve order, used as the leaderboard tie-break
	mu         sync.RWMutex
	mongodb    *database.MongoDB
	admins     []string
}

func NewUserSupervisor(mongodb *database.MongoDB, admins []string) actor.Actor {
	return &UserSupervisor{
		userActors: make(map[string]*actor.PID),
		mongodb:    mongodb,
		admins:     admins,
	}
}

// Message types
type (
	ResolveUserMsg struct {
		ClientID string
	}

	GetUserMsg struct {
		UserID string
	}

	UpdateSettingsMsg struct {
		UserID   string
		MapStyle string
	}

	AddPointsMsg struct {
		UserID   string
		Delta    int
		Activity string
	}

	ClaimDailyMsg struct {
		UserID string
		Now    time.Time // zero value means current time
	}

	RedeemPointsMsg struct {
		UserID string
	}

	GrantTrialMsg struct {
		UserID string
	}

	// GrantProMsg sets the PRO entitlement until the given instant,
	// overwriting any previous expiry. Sent by the payment actor on a
	// confirmed payment and by the entitlement operations.
	GrantProMsg struct {
		UserID  string
		Until   time.Time
		SubType string
		Source  string
	}

	ListUsersMsg struct{}
)

func (s *UserSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		s.loadFromDatabase(context)

	case *ResolveUserMsg:
		clientID := msg.ClientID
		if clientID == "" {
			clientID = LocalClientID
		}
		pid := s.getOrCreateUserActor(context, clientID)
		s.forward(context, pid, &GetUserMsg{UserID: clientID})

	case *GetUserMsg:
		s.mu.RLock()
		pid, exists := s.userActors[msg.UserID]
		s.mu.RUnlock()
		if !exists {
			context.Respond(utils.NewAppError(utils.ErrUserNotFound, "User not found: "+msg.UserID, nil))
			return
		}
		s.forward(context, pid, msg)

	case *AddPointsMsg:
		s.mu.RLock()
		pid, exists := s.userActors[msg.UserID]
		s.mu.RUnlock()
		if !exists {
			log.Printf("UserSupervisor: user %s not found for point award", msg.UserID)
			return
		}
		context.Send(pid, msg)

	case *UpdateSettingsMsg:
		s.route(context, msg.UserID, msg)
	case *ClaimDailyMsg:
		s.route(context, msg.UserID, msg)
	case *RedeemPointsMsg:
		s.route(context, msg.UserID, msg)
	case *GrantTrialMsg:
		s.route(context, msg.UserID, msg)

	case *GrantProMsg:
		// Payment confirmations may arrive before the user actor is
		// rehydrated in this process.
		pid := s.getOrCreateUserActor(context, msg.UserID)
		context.Send(pid, msg)

	case *ListUsersMsg:
		s.mu.RLock()
		ids := make([]string, len(s.order))
		copy(ids, s.order)
		pids := make([]*actor.PID, 0, len(ids))
		for _, id := range ids {
			pids = append(pids, s.userActors[id])
		}
		s.mu.RUnlock()

		users := make([]*models.User, 0, len(pids))
		for _, pid := range pids {
			future := context.RequestFuture(pid, &GetUserMsg{}, 5*time.Second)
			result, err := future.Result()
			if err != nil {
				log.Printf("UserSupervisor: failed to snapshot user: %v", err)
				continue
			}
			if user, ok := result.(*models.User); ok {
				users = append(users, user)
			}
		}
		context.Respond(users)

	case *GetCountsMsg:
		s.mu.RLock()
		count := len(s.userActors)
		s.mu.RUnlock()
		context.Respond(count)
	}
}

// loadFromDatabase respawns an actor for every stored user, so a
// restarted process still lists and ranks users who have not resolved
// again yet.
func (s *UserSupervisor) loadFromDatabase(context actor.SpawnerContext) {
	if s.mongodb == nil {
		return
	}
	ctx := stdctx.Background()
	users, err := s.mongodb.ListUsers(ctx)
	if err != nil {
		log.Printf("UserSupervisor: failed to load users: %v", err)
		return
	}
	for _, user := range users {
		s.spawnStored(context, user)
	}
	if len(users) > 0 {
		log.Printf("UserSupervisor: loaded %d users", len(users))
	}
}

// spawnStored registers a user actor for a persisted record, keeping
// the stored role and the stored order. Already-known ids are left
// alone.
func (s *UserSupervisor) spawnStored(context actor.SpawnerContext, user *models.User) {
	s.mu.RLock()
	_, exists := s.userActors[user.ID]
	s.mu.RUnlock()
	if exists {
		return
	}

	id, role := user.ID, user.Role
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(id, role, s.mongodb)
	})
	pid := context.Spawn(props)

	s.mu.Lock()
	s.userActors[id] = pid
	s.order = append(s.order, id)
	s.mu.Unlock()
}

// route forwards a message to an existing user actor, responding with
// an error when the user was never resolved.
func (s *UserSupervisor) route(context actor.Context, userID string, msg interface{}) {
	s.mu.RLock()
	pid, exists := s.userActors[userID]
	s.mu.RUnlock()
	if !exists {
		context.Respond(utils.NewAppError(utils.ErrUserNotFound, "User not found: "+userID, nil))
		return
	}
	s.forward(context, pid, msg)
}

func (s *UserSupervisor) forward(context actor.Context, pid *actor.PID, msg interface{}) {
	future := context.RequestFuture(pid, msg, 5*time.Second)
	result, err := future.Result()
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrActorTimeout, "User actor timeout", err))
		return
	}
	context.Respond(result)
}

func (s *UserSupervisor) getOrCreateUserActor(context actor.Context, clientID string) *actor.PID {
	s.mu.RLock()
	pid, exists := s.userActors[clientID]
	s.mu.RUnlock()
	if exists {
		return pid
	}

	role := models.RoleUser
	for _, admin := range s.admins {
		if admin == clientID {
			role = models.RoleAdmin
			break
		}
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewUserActor(clientID, role, s.mongodb)
	})
	pid = context.Spawn(props)

	s.mu.Lock()
	s.userActors[clientID] = pid
	s.order = append(s.order, clientID)
	s.mu.Unlock()

	return pid
}

// UserActor owns the state of a single user. All mutation is serialized
// through the actor mailbox.
type UserActor struct {
	id      string
	state   *models.User
	mongodb *database.MongoDB
}

func NewUserActor(id string, role models.UserRole, mongodb *database.MongoDB) *UserActor {
	return &UserActor{
		id:      id,
		mongodb: mongodb,
		state:   seedUser(id, role),
	}
}

// defaultName derives a display name from the client id.
func defaultName(id string) string {
	tail := id
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "User_" + tail
}

func seedUser(id string, role models.UserRole) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Name:      defaultName(id),
		Role:      role,
		Points:    seedPoints,
		IsPro:     false,
		Settings:  models.Settings{MapStyle: models.DefaultMapStyle},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (a *UserActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		// Prefer the persisted record; repeated resolves never re-seed.
		if a.mongodb != nil {
			ctx := stdctx.Background()
			if user, err := a.mongodb.GetUser(ctx, a.id); err == nil {
				a.state = user
			} else if !utils.IsErrorCode(err, utils.ErrUserNotFound) {
				log.Printf("UserActor: failed to load user %s: %v", a.id, err)
			} else {
				a.persist()
			}
		}

	case *GetUserMsg:
		context.Respond(a.snapshot())

	case *AddPointsMsg:
		a.state.Points += msg.Delta
		if a.state.Points < 0 {
			a.state.Points = 0
		}
		a.state.UpdatedAt = time.Now()
		a.persist()
		a.recordActivity(msg.Activity, msg.Delta)

	case *UpdateSettingsMsg:
		var style *models.MapStyle
		for _, s := range models.MapStyles() {
			if s.ID == msg.MapStyle {
				style = &s
				break
			}
		}
		if style == nil {
			context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Unknown map style: "+msg.MapStyle, nil))
			return
		}
		if style.ProOnly && !a.state.IsPro {
			context.Respond(utils.NewForbiddenError("map style requires PRO"))
			return
		}
		a.state.Settings.MapStyle = style.ID
		a.state.UpdatedAt = time.Now()
		a.persist()
		context.Respond(a.snapshot())

	case *ClaimDailyMsg:
		now := msg.Now
		if now.IsZero() {
			now = time.Now()
		}
		if a.state.DailyClaimedAt != nil && sameCalendarDay(*a.state.DailyClaimedAt, now) {
			context.Respond(&utils.DomainResult{OK: false, Message: "Daily reward already claimed today"})
			return
		}
		claimed := now
		a.state.DailyClaimedAt = &claimed
		a.state.Points += dailyRewardPoints
		a.state.UpdatedAt = now
		a.persist()
		a.recordActivity("daily", dailyRewardPoints)
		points := a.state.Points
		context.Respond(&utils.DomainResult{OK: true, Points: &points})

	case *RedeemPointsMsg:
		if a.state.Points < proPointsCost {
			context.Respond(&utils.DomainResult{
				OK:      false,
				Message: fmt.Sprintf("Not enough points: %d of %d", a.state.Points, proPointsCost),
			})
			return
		}
		a.state.Points -= proPointsCost
		a.grantPro(time.Now().AddDate(0, 1, 0), "points", "points")
		points := a.state.Points
		context.Respond(&utils.DomainResult{OK: true, Points: &points})

	case *GrantTrialMsg:
		a.grantPro(time.Now().AddDate(0, 1, 0), "trial", "trial")
		context.Respond(a.snapshot())

	case *GrantProMsg:
		a.grantPro(msg.Until, msg.SubType, msg.Source)
		context.Respond(a.snapshot())
	}
}

// grantPro overwrites the entitlement window. Repeated grants reset the
// expiry rather than extending it.
func (a *UserActor) grantPro(until time.Time, subType, source string) {
	a.state.IsPro = true
	a.state.ProUntil = &until
	a.state.Prefix = "PRO"
	a.state.UpdatedAt = time.Now()
	a.persist()

	if a.mongodb != nil {
		sub := &models.Subscription{
			ID:        uuid.New(),
			UserID:    a.state.ID,
			Status:    "active",
			Type:      subType,
			StartAt:   time.Now(),
			EndAt:     until,
			Source:    source,
			CreatedAt: time.Now(),
		}
		ctx := stdctx.Background()
		if err := a.mongodb.SaveSubscription(ctx, sub); err != nil {
			log.Printf("UserActor: failed to save subscription for %s: %v", a.state.ID, err)
		}
	}
}

// snapshot returns a copy so callers never share the actor's state.
func (a *UserActor) snapshot() *models.User {
	if a.state == nil {
		return nil
	}
	copied := *a.state
	return &copied
}

func (a *UserActor) persist() {
	if a.mongodb == nil {
		return
	}
	ctx := stdctx.Background()
	if err := a.mongodb.SaveUser(ctx, a.state); err != nil {
		log.Printf("UserActor: failed to save user %s: %v", a.state.ID, err)
	}
}

func (a *UserActor) recordActivity(activityType string, points int) {
	if a.mongodb == nil || activityType == "" {
		return
	}
	activity := &models.Activity{
		ID:        uuid.New(),
		UserID:    a.state.ID,
		Type:      activityType,
		Points:    points,
		CreatedAt: time.Now(),
	}
	ctx := stdctx.Background()
	if err := a.mongodb.SaveActivity(ctx, activity); err != nil {
		log.Printf("UserActor: failed to record activity for %s: %v", a.state.ID, err)
	}
}

// sameCalendarDay compares two instants by calendar date in local time.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
