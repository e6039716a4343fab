package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marker-map/internal/config"
	"marker-map/internal/engine"
	"marker-map/internal/middleware"
	"marker-map/internal/models"
	"marker-map/internal/scoring"
	"marker-map/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestServer(t *testing.T, adminCfg *config.AdminConfig) *http.ServeMux {
	t.Helper()
	if adminCfg == nil {
		adminCfg = &config.AdminConfig{JWTKey: "test-secret"}
	}

	metrics := utils.NewMetricsCollector()
	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, metrics, nil, adminCfg.Allowed)
	adminAuth := middleware.NewAdminAuth(adminCfg.JWTKey, adminCfg.KeyHash)

	server := NewServer(system, system.Root, eng, metrics, nil, adminCfg, adminAuth)
	return server.Routes()
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func initClient(t *testing.T, mux *http.ServeMux, clientID string) *models.User {
	t.Helper()
	w := doRequest(t, mux, "POST", "/client/init?client_id="+clientID, InitClientRequest{ClientID: clientID}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user models.User
	decodeInto(t, w, &user)
	return &user
}

func TestIntegrationFlow(t *testing.T) {
	mux := newTestServer(t, &config.AdminConfig{
		Allowed: []string{"admin_1"},
		JWTKey:  "test-secret",
	})

	// Step 1: resolve two clients and the admin.
	alice := initClient(t, mux, "alice")
	assert.Equal(t, 50, alice.Points)
	initClient(t, mux, "bob")
	initClient(t, mux, "admin_1")
	t.Logf("Clients resolved, alice starts with %d points", alice.Points)

	// Step 2: alice submits a marker.
	w := doRequest(t, mux, "POST", "/markers?client_id=alice", SubmitMarkerRequest{
		Type:     "dps",
		Title:    "Checkpoint on the bridge",
		Location: &models.Location{Lat: 55.75, Lng: 37.62},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var marker models.Marker
	decodeInto(t, w, &marker)
	assert.Equal(t, models.StatusPending, marker.Status)
	t.Logf("Marker submitted with ID: %s", marker.ID)

	// Step 3: the submission bonus lands before moderation.
	time.Sleep(100 * time.Millisecond)
	alice = initClient(t, mux, "alice")
	assert.Equal(t, 55, alice.Points)

	// Step 4: the pending marker is invisible on the map.
	w = doRequest(t, mux, "GET", "/markers?client_id=bob", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Marker
	decodeInto(t, w, &listed)
	assert.Empty(t, listed)

	// Step 5: moderation queue needs the admin capability.
	w = doRequest(t, mux, "GET", "/markers/pending?client_id=bob", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, mux, "GET", "/markers/pending?client_id=admin_1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []models.Marker
	decodeInto(t, w, &queue)
	require.Len(t, queue, 1)

	// Step 6: approve.
	w = doRequest(t, mux, "POST", "/markers/moderate?client_id=admin_1", ModerateRequest{
		MarkerID: marker.ID.String(),
		Approve:  true,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, mux, "GET", "/markers?client_id=bob", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, models.StatusActive, listed[0].Status)
	t.Logf("Marker approved and visible on the map")

	// Step 7: bob confirms.
	w = doRequest(t, mux, "POST", "/markers/confirm?client_id=bob", MarkerActionRequest{
		MarkerID: marker.ID.String(),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var confirmed models.Marker
	decodeInto(t, w, &confirmed)
	assert.Equal(t, 1, confirmed.Confirmations)

	// Step 8: the leaderboard reflects both direct and derived points.
	// alice: 55 direct + 5 author + 1 confirmation = 61.
	// bob:   52 direct + 1 confirmation = 53.
	time.Sleep(100 * time.Millisecond)
	w = doRequest(t, mux, "GET", "/leaderboard?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []scoring.Entry
	decodeInto(t, w, &entries)
	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, "alice", entries[0].ID)
	assert.Equal(t, 61, entries[0].Score)
	assert.Equal(t, "bob", entries[1].ID)
	assert.Equal(t, 53, entries[1].Score)
	t.Logf("Leaderboard: %+v", entries)

	// Step 9: rank inside the cutoff unlocks free PRO.
	w = doRequest(t, mux, "GET", "/user/is_top10_free_pro?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var topFree map[string]bool
	decodeInto(t, w, &topFree)
	assert.True(t, topFree["isTopFreePro"])
}

func TestDailyClaimOverHTTP(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	w := doRequest(t, mux, "POST", "/user/claim_daily?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result utils.DomainResult
	decodeInto(t, w, &result)
	require.True(t, result.OK)
	require.NotNil(t, result.Points)
	assert.Equal(t, 60, *result.Points)

	// Second claim the same day is a domain failure, still HTTP 200.
	w = doRequest(t, mux, "POST", "/user/claim_daily?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &result)
	assert.False(t, result.OK)
	assert.NotEmpty(t, result.Message)
}

func TestTrialAndSettingsOverHTTP(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	// PRO-only style is rejected before the trial.
	w := doRequest(t, mux, "PATCH", "/user?client_id=alice", UpdateUserRequest{MapStyle: "dark"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, mux, "POST", "/user/grant_pro_trial?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decodeInto(t, w, &user)
	assert.True(t, user.IsPro)
	assert.Equal(t, "PRO", user.Prefix)

	w = doRequest(t, mux, "PATCH", "/user?client_id=alice", UpdateUserRequest{MapStyle: "dark"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &user)
	assert.Equal(t, "dark", user.Settings.MapStyle)
}

func TestMarkerDetail(t *testing.T) {
	mux := newTestServer(t, &config.AdminConfig{
		Allowed: []string{"admin_1"},
		JWTKey:  "test-secret",
	})
	initClient(t, mux, "alice")
	initClient(t, mux, "bob")
	initClient(t, mux, "admin_1")

	w := doRequest(t, mux, "POST", "/markers?client_id=alice", SubmitMarkerRequest{
		Type:     "camera",
		Title:    "Speed camera",
		Location: &models.Location{Lat: 55.75, Lng: 37.62},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var marker models.Marker
	decodeInto(t, w, &marker)

	w = doRequest(t, mux, "POST", "/markers/moderate?client_id=admin_1", ModerateRequest{
		MarkerID: marker.ID.String(),
		Approve:  true,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, mux, "POST", "/markers/rate?client_id=bob", MarkerActionRequest{
		MarkerID: marker.ID.String(),
		Value:    4,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, mux, "POST", "/markers/comment?client_id=bob", MarkerActionRequest{
		MarkerID: marker.ID.String(),
		Text:     "still there",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// bob sees his own rating in the detail view.
	w = doRequest(t, mux, "GET", "/markers/"+marker.ID.String()+"?client_id=bob", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var detail MarkerDetailResponse
	decodeInto(t, w, &detail)
	assert.Equal(t, marker.ID, detail.Marker.ID)
	assert.Len(t, detail.Comments, 1)
	assert.Equal(t, 4.0, detail.RatingAvg)
	assert.Equal(t, 4, detail.MyRating)

	// alice never rated; the average still shows.
	w = doRequest(t, mux, "GET", "/markers/"+marker.ID.String()+"?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &detail)
	assert.Equal(t, 4.0, detail.RatingAvg)
	assert.Equal(t, 0, detail.MyRating)

	w = doRequest(t, mux, "GET", "/markers/"+uuid.New().String()+"?client_id=alice", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentStatusPoll(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	w := doRequest(t, mux, "POST", "/payments/create?client_id=alice", CreatePaymentRequest{Plan: "trial"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payment PaymentResponse
	decodeInto(t, w, &payment)

	w = doRequest(t, mux, "GET", "/payments/status?payment_id="+payment.PaymentID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status PaymentResponse
	decodeInto(t, w, &status)
	assert.Equal(t, payment.PaymentID, status.PaymentID)
	assert.Equal(t, "created", status.Status)

	w = doRequest(t, mux, "POST", "/payments/enot/webhook", EnotWebhookRequest{
		PaymentID: payment.PaymentID,
		Status:    "success",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, mux, "GET", "/payments/status?payment_id="+payment.PaymentID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeInto(t, w, &status)
	assert.Equal(t, "success", status.Status)

	w = doRequest(t, mux, "GET", "/payments/status?payment_id="+uuid.New().String(), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, mux, "GET", "/payments/status?payment_id=not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMySubscriptionsWithoutDatabase(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	w := doRequest(t, mux, "GET", "/subscriptions/me?client_id=alice", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var subs []models.Subscription
	decodeInto(t, w, &subs)
	assert.Empty(t, subs)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	w := doRequest(t, mux, "POST", "/payments/create?client_id=alice", CreatePaymentRequest{Plan: "monthly"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var payment PaymentResponse
	decodeInto(t, w, &payment)
	assert.NotEmpty(t, payment.URL)
	assert.Equal(t, "created", payment.Status)

	// No entitlement until the provider confirms.
	user := initClient(t, mux, "alice")
	assert.False(t, user.IsPro)

	w = doRequest(t, mux, "POST", "/payments/enot/webhook", EnotWebhookRequest{
		PaymentID: payment.PaymentID,
		Status:    "success",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	time.Sleep(100 * time.Millisecond)
	user = initClient(t, mux, "alice")
	assert.True(t, user.IsPro)
	require.NotNil(t, user.ProUntil)
	assert.True(t, user.ProUntil.After(time.Now()))
}

func TestAdminLoginIssuesModerationToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	mux := newTestServer(t, &config.AdminConfig{
		KeyHash: string(hash),
		JWTKey:  "test-secret",
	})
	initClient(t, mux, "mod")

	w := doRequest(t, mux, "POST", "/admin/login?client_id=mod", AdminLoginRequest{Key: "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, mux, "POST", "/admin/login?client_id=mod", AdminLoginRequest{Key: "sesame"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var login map[string]string
	decodeInto(t, w, &login)
	require.NotEmpty(t, login["token"])

	// The token alone carries the moderation capability.
	w = doRequest(t, mux, "GET", "/markers/pending?client_id=mod", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, mux, "GET", "/markers/pending?client_id=mod", nil, map[string]string{
		"Authorization": "Bearer " + login["token"],
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestServer(t, nil)
	initClient(t, mux, "alice")

	w := doRequest(t, mux, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decodeInto(t, w, &health)
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 1, health["user_count"])

	// The request counter covers the init call and this health call.
	metrics, ok := health["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, metrics["requests"].(float64), 2.0)
}
