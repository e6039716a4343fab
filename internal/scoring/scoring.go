// Package scoring derives the engagement leaderboard from the current
// user and marker state. It is a pure projection: no side effects, and
// identical inputs always produce identical output.
package scoring

import (
	"sort"

	"marker-map/internal/models"
)

// LeaderboardSize caps the ranking returned to clients.
const LeaderboardSize = 20

// FreeProRank is the cutoff below which leaderboard position alone
// unlocks PRO.
const FreeProRank = 10

// Entry is one leaderboard row.
type Entry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard computes the ranking over the given users and active
// markers. A user's score is their direct point balance plus derived
// contributions: marker authors get 5 plus the marker's comment and
// confirmation counts, commenters get 1 per comment, confirmers get 1
// per confirmation. Engagement points therefore count twice: once
// accrued at action time and once derived here. Ties keep first-seen
// order; output is truncated to LeaderboardSize.
func Leaderboard(users []*models.User, markers []*models.Marker) []Entry {
	scores := make(map[string]int)
	names := make(map[string]string)
	seen := make([]string, 0, len(users))
	seenSet := make(map[string]bool)

	note := func(id string) {
		if !seenSet[id] {
			seenSet[id] = true
			seen = append(seen, id)
		}
	}

	for _, u := range users {
		note(u.ID)
		scores[u.ID] += u.Points
		names[u.ID] = u.Name
	}

	for _, m := range markers {
		if m.Status != models.StatusActive {
			continue
		}
		note(m.CreatedBy)
		scores[m.CreatedBy] += 5 + len(m.Comments) + m.Confirmations
		for _, c := range m.Comments {
			note(c.UserID)
			scores[c.UserID]++
		}
		for _, confirmer := range m.ConfirmationsBy {
			note(confirmer)
			scores[confirmer]++
		}
	}

	entries := make([]Entry, 0, len(seen))
	for _, id := range seen {
		name := names[id]
		if name == "" {
			name = fallbackName(id)
		}
		entries = append(entries, Entry{ID: id, Name: name, Score: scores[id]})
	}

	// SliceStable keeps first-seen order for equal scores.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if len(entries) > LeaderboardSize {
		entries = entries[:LeaderboardSize]
	}
	return entries
}

// IsTopNFreePro reports whether userID ranks within the first n entries.
func IsTopNFreePro(entries []Entry, userID string, n int) bool {
	if n > len(entries) {
		n = len(entries)
	}
	for i := 0; i < n; i++ {
		if entries[i].ID == userID {
			return true
		}
	}
	return false
}

// fallbackName covers ids that appear only through engagement on
// markers, without a resolved user record.
func fallbackName(id string) string {
	tail := id
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "User_" + tail
}
