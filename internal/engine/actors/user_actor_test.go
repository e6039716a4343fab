package actors

import (
	"testing"
	"time"

	"marker-map/internal/models"
	"marker-map/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserSupervisor(t *testing.T, admins []string) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewUserSupervisor(nil, admins)
	}))
	return system, pid
}

func resolveUser(t *testing.T, system *actor.ActorSystem, pid *actor.PID, clientID string) *models.User {
	t.Helper()
	result := request(t, system, pid, &ResolveUserMsg{ClientID: clientID})
	user, ok := result.(*models.User)
	require.True(t, ok, "expected a user, got %T: %v", result, result)
	return user
}

func TestResolveSeedsUser(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	user := resolveUser(t, system, pid, "client-abc-1234")
	assert.Equal(t, "client-abc-1234", user.ID)
	assert.Equal(t, "User_1234", user.Name)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.Equal(t, 50, user.Points)
	assert.False(t, user.IsPro)
	assert.Equal(t, models.DefaultMapStyle, user.Settings.MapStyle)
}

func TestResolveIsIdempotent(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	resolveUser(t, system, pid, "client-1")
	system.Root.Send(pid, &AddPointsMsg{UserID: "client-1", Delta: 7})

	// A second resolve returns the same user without re-seeding.
	time.Sleep(50 * time.Millisecond)
	user := resolveUser(t, system, pid, "client-1")
	assert.Equal(t, 57, user.Points)
}

func TestResolveEmptyClientIDFallsBackToLocal(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	user := resolveUser(t, system, pid, "")
	assert.Equal(t, LocalClientID, user.ID)
}

func TestAdminRoleFromAllowList(t *testing.T) {
	system, pid := newUserSupervisor(t, []string{"boss"})

	admin := resolveUser(t, system, pid, "boss")
	assert.Equal(t, models.RoleAdmin, admin.Role)

	regular := resolveUser(t, system, pid, "not-boss")
	assert.Equal(t, models.RoleUser, regular.Role)
}

func TestPointsNeverGoNegative(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	resolveUser(t, system, pid, "client-1")
	system.Root.Send(pid, &AddPointsMsg{UserID: "client-1", Delta: -500})

	time.Sleep(50 * time.Millisecond)
	user := resolveUser(t, system, pid, "client-1")
	assert.Equal(t, 0, user.Points)
}

func TestOperationsOnUnknownUser(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	result := request(t, system, pid, &ClaimDailyMsg{UserID: "ghost"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrUserNotFound, appErr.Code)
}

func TestDailyClaimCalendarBoundary(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)
	resolveUser(t, system, pid, "client-1")

	evening := time.Date(2025, 3, 10, 23, 59, 59, 0, time.Local)

	first := request(t, system, pid, &ClaimDailyMsg{UserID: "client-1", Now: evening}).(*utils.DomainResult)
	require.True(t, first.OK)
	require.NotNil(t, first.Points)
	assert.Equal(t, 60, *first.Points)

	// Same calendar day: rejected as a domain failure, not a
	// transport error.
	again := request(t, system, pid, &ClaimDailyMsg{UserID: "client-1", Now: evening}).(*utils.DomainResult)
	assert.False(t, again.OK)
	assert.NotEmpty(t, again.Message)

	// Two seconds later it is the next calendar day and the claim
	// succeeds again.
	nextDay := request(t, system, pid, &ClaimDailyMsg{UserID: "client-1", Now: evening.Add(2 * time.Second)}).(*utils.DomainResult)
	require.True(t, nextDay.OK)
	assert.Equal(t, 70, *nextDay.Points)
}

func TestRedeemPointsThreshold(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)
	resolveUser(t, system, pid, "client-1")

	// 50 seeded points are not enough.
	short := request(t, system, pid, &RedeemPointsMsg{UserID: "client-1"}).(*utils.DomainResult)
	assert.False(t, short.OK)

	// Top up to 999: still one short.
	system.Root.Send(pid, &AddPointsMsg{UserID: "client-1", Delta: 949})
	time.Sleep(50 * time.Millisecond)
	short = request(t, system, pid, &RedeemPointsMsg{UserID: "client-1"}).(*utils.DomainResult)
	assert.False(t, short.OK)

	system.Root.Send(pid, &AddPointsMsg{UserID: "client-1", Delta: 1})
	time.Sleep(50 * time.Millisecond)
	ok := request(t, system, pid, &RedeemPointsMsg{UserID: "client-1"}).(*utils.DomainResult)
	require.True(t, ok.OK)
	require.NotNil(t, ok.Points)
	assert.Equal(t, 0, *ok.Points)

	user := resolveUser(t, system, pid, "client-1")
	assert.True(t, user.IsPro)
	assert.Equal(t, "PRO", user.Prefix)
	require.NotNil(t, user.ProUntil)
	assert.True(t, user.ProUntil.After(time.Now()))
}

func TestGrantTrial(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)
	resolveUser(t, system, pid, "client-1")

	result := request(t, system, pid, &GrantTrialMsg{UserID: "client-1"}).(*models.User)
	assert.True(t, result.IsPro)
	assert.Equal(t, "PRO", result.Prefix)
	// The trial does not touch the point balance.
	assert.Equal(t, 50, result.Points)
}

func TestGrantProResetsExpiry(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)
	resolveUser(t, system, pid, "client-1")

	far := time.Now().AddDate(0, 2, 0)
	near := time.Now().AddDate(0, 0, 7)

	request(t, system, pid, &GrantProMsg{UserID: "client-1", Until: far, SubType: "monthly", Source: "enot"})
	user := request(t, system, pid, &GrantProMsg{UserID: "client-1", Until: near, SubType: "trial", Source: "enot"}).(*models.User)

	// The later grant overwrites, it does not extend.
	require.NotNil(t, user.ProUntil)
	assert.WithinDuration(t, near, *user.ProUntil, time.Second)
}

func TestMapStyleProGate(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)
	resolveUser(t, system, pid, "client-1")

	result := request(t, system, pid, &UpdateSettingsMsg{UserID: "client-1", MapStyle: "dark"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	result = request(t, system, pid, &UpdateSettingsMsg{UserID: "client-1", MapStyle: "hologram"})
	appErr, ok = result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	request(t, system, pid, &GrantTrialMsg{UserID: "client-1"})
	user := request(t, system, pid, &UpdateSettingsMsg{UserID: "client-1", MapStyle: "dark"}).(*models.User)
	assert.Equal(t, "dark", user.Settings.MapStyle)
}

func TestStoredUsersRegisterInOrder(t *testing.T) {
	system := actor.NewActorSystem()
	sup := NewUserSupervisor(nil, nil).(*UserSupervisor)
	pid := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return sup
	}))

	sup.spawnStored(system.Root, &models.User{ID: "stored-1", Role: models.RoleAdmin})
	sup.spawnStored(system.Root, &models.User{ID: "stored-2", Role: models.RoleUser})
	// A repeat id never replaces the registered actor.
	sup.spawnStored(system.Root, &models.User{ID: "stored-1", Role: models.RoleUser})

	users := request(t, system, pid, &ListUsersMsg{}).([]*models.User)
	require.Len(t, users, 2)
	assert.Equal(t, "stored-1", users[0].ID)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Equal(t, "stored-2", users[1].ID)

	// Resolving a registered id reuses the existing actor instead of
	// re-seeding it.
	user := resolveUser(t, system, pid, "stored-1")
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestListUsersPreservesResolveOrder(t *testing.T) {
	system, pid := newUserSupervisor(t, nil)

	resolveUser(t, system, pid, "first")
	resolveUser(t, system, pid, "second")
	resolveUser(t, system, pid, "third")
	resolveUser(t, system, pid, "second")

	users := request(t, system, pid, &ListUsersMsg{}).([]*models.User)
	require.Len(t, users, 3)
	assert.Equal(t, "first", users[0].ID)
	assert.Equal(t, "second", users[1].ID)
	assert.Equal(t, "third", users[2].ID)
}
