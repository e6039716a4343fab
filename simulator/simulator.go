package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// SimConfig drives the synthetic load against a running server.
type SimConfig struct {
	NumUsers         int
	NumAdmins        int
	SimulationTime   time.Duration
	SubmitFrequency  float64 // markers per user per hour
	ConfirmFrequency float64
	CommentFrequency float64
	RateFrequency    float64
	EngineURL        string
}

// SimulationStats aggregates outcomes across all simulated users.
type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	TotalMarkers     int
	TotalConfirms    int
	TotalComments    int
	TotalRatings     int
	ModeratedMarkers int
	RequestLatencies []time.Duration
}

// SimulatedUser is one synthetic client identity.
type SimulatedUser struct {
	ClientID string
	IsAdmin  bool
	Markers  []string // ids of markers this user submitted
}

type Simulator struct {
	config SimConfig
	stats  *SimulationStats
	users  []*SimulatedUser
	client *http.Client
	mu     sync.RWMutex
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config: config,
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Run initializes the synthetic users and drives activity until the
// context expires.
func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting marker simulation...")

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateActivities(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateModeration(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	log.Printf("Creating %d users (%d admins)...", s.config.NumUsers, s.config.NumAdmins)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make([]*SimulatedUser, 0, s.config.NumUsers)

	for i := 0; i < s.config.NumUsers; i++ {
		user := &SimulatedUser{
			ClientID: fmt.Sprintf("sim_user_%d", i),
			IsAdmin:  i < s.config.NumAdmins,
		}
		body := map[string]string{"clientId": user.ClientID}
		if err := s.post(ctx, "/client/init", user.ClientID, body, nil); err != nil {
			return fmt.Errorf("failed to init client %s: %v", user.ClientID, err)
		}
		s.users = append(s.users, user)
	}

	log.Printf("Initialization completed successfully")
	return nil
}

// simulateActivities drives submissions and engagement at the
// configured per-user frequencies.
func (s *Simulator) simulateActivities(ctx context.Context) {
	perHour := float64(s.config.NumUsers) * (s.config.SubmitFrequency +
		s.config.ConfirmFrequency + s.config.CommentFrequency + s.config.RateFrequency)
	if perHour <= 0 {
		return
	}
	interval := time.Duration(float64(time.Hour) / perHour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.performRandomActivity(ctx)
		}
	}
}

func (s *Simulator) performRandomActivity(ctx context.Context) {
	s.mu.RLock()
	user := s.users[rand.Intn(len(s.users))]
	s.mu.RUnlock()

	total := s.config.SubmitFrequency + s.config.ConfirmFrequency +
		s.config.CommentFrequency + s.config.RateFrequency
	roll := rand.Float64() * total

	switch {
	case roll < s.config.SubmitFrequency:
		s.submitMarker(ctx, user)
	case roll < s.config.SubmitFrequency+s.config.ConfirmFrequency:
		s.engage(ctx, user, "confirm")
	case roll < s.config.SubmitFrequency+s.config.ConfirmFrequency+s.config.CommentFrequency:
		s.engage(ctx, user, "comment")
	default:
		s.engage(ctx, user, "rate")
	}
}

var markerTypes = []string{"dps", "camera", "parking", "accident", "roadwork", "hazard"}

func (s *Simulator) submitMarker(ctx context.Context, user *SimulatedUser) {
	// Scatter around Moscow center like the seed data.
	draft := map[string]interface{}{
		"type":        markerTypes[rand.Intn(len(markerTypes))],
		"title":       fmt.Sprintf("Simulated marker by %s", user.ClientID),
		"description": "generated by the load simulator",
		"location": map[string]float64{
			"lat": 55.75 + rand.Float64()*0.1 - 0.05,
			"lng": 37.62 + rand.Float64()*0.1 - 0.05,
		},
	}

	var marker struct {
		ID string `json:"id"`
	}
	if err := s.post(ctx, "/markers", user.ClientID, draft, &marker); err != nil {
		return
	}

	s.mu.Lock()
	user.Markers = append(user.Markers, marker.ID)
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.TotalMarkers++
	s.stats.mu.Unlock()
}

// engage runs one confirm/comment/rate action against a random active
// marker.
func (s *Simulator) engage(ctx context.Context, user *SimulatedUser, action string) {
	markerID := s.randomActiveMarker(ctx, user.ClientID)
	if markerID == "" {
		return
	}

	body := map[string]interface{}{"markerId": markerID}
	switch action {
	case "comment":
		body["text"] = fmt.Sprintf("comment from %s", user.ClientID)
	case "rate":
		body["value"] = 1 + rand.Intn(5)
	}

	if err := s.post(ctx, "/markers/"+action, user.ClientID, body, nil); err != nil {
		return
	}

	s.stats.mu.Lock()
	switch action {
	case "confirm":
		s.stats.TotalConfirms++
	case "comment":
		s.stats.TotalComments++
	case "rate":
		s.stats.TotalRatings++
	}
	s.stats.mu.Unlock()
}

func (s *Simulator) randomActiveMarker(ctx context.Context, clientID string) string {
	var markers []struct {
		ID string `json:"id"`
	}
	if err := s.get(ctx, "/markers", clientID, &markers); err != nil || len(markers) == 0 {
		return ""
	}
	return markers[rand.Intn(len(markers))].ID
}

// simulateModeration has the admin users drain the pending queue,
// approving most submissions.
func (s *Simulator) simulateModeration(ctx context.Context) {
	if s.config.NumAdmins == 0 {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			admin := s.users[rand.Intn(s.config.NumAdmins)]

			var pending []struct {
				ID string `json:"id"`
			}
			if err := s.get(ctx, "/markers/pending", admin.ClientID, &pending); err != nil {
				continue
			}
			for _, p := range pending {
				body := map[string]interface{}{
					"markerId": p.ID,
					"approve":  rand.Float64() < 0.9,
				}
				if err := s.post(ctx, "/markers/moderate", admin.ClientID, body, nil); err == nil {
					s.stats.mu.Lock()
					s.stats.ModeratedMarkers++
					s.stats.mu.Unlock()
				}
			}
		}
	}
}

func (s *Simulator) post(ctx context.Context, path, clientID string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, path, clientID, bytes.NewReader(payload), out)
}

func (s *Simulator) get(ctx context.Context, path, clientID string, out interface{}) error {
	return s.do(ctx, http.MethodGet, path, clientID, nil, out)
}

func (s *Simulator) do(ctx context.Context, method, path, clientID string, body *bytes.Reader, out interface{}) error {
	endpoint := fmt.Sprintf("%s%s?client_id=%s", s.config.EngineURL, path, url.QueryEscape(clientID))

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)

	s.stats.mu.Lock()
	s.stats.TotalRequests++
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)
	if err != nil || resp == nil || resp.StatusCode >= 400 {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}
	s.stats.mu.Unlock()

	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Metrics summarizes the run.
type Metrics struct {
	TotalUsers       int
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	TotalMarkers     int
	TotalConfirms    int
	TotalComments    int
	TotalRatings     int
	ModeratedMarkers int
	AverageLatency   time.Duration
}

func (s *Simulator) GetMetrics() Metrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	var avg time.Duration
	if len(s.stats.RequestLatencies) > 0 {
		var total time.Duration
		for _, l := range s.stats.RequestLatencies {
			total += l
		}
		avg = total / time.Duration(len(s.stats.RequestLatencies))
	}

	return Metrics{
		TotalUsers:       len(s.users),
		TotalRequests:    s.stats.TotalRequests,
		SuccessRequests:  s.stats.SuccessRequests,
		FailedRequests:   s.stats.FailedRequests,
		TotalMarkers:     s.stats.TotalMarkers,
		TotalConfirms:    s.stats.TotalConfirms,
		TotalComments:    s.stats.TotalComments,
		TotalRatings:     s.stats.TotalRatings,
		ModeratedMarkers: s.stats.ModeratedMarkers,
		AverageLatency:   avg,
	}
}
