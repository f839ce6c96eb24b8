package store

import "sort"

// ScoreEntry is one row of a highscore listing.
type ScoreEntry struct {
	Username string
	Score    int
}

// TopScores returns at most n users sorted by score descending. Ties break by
// username ascending so the listing is deterministic across runs.
func TopScores(users map[string]*User, n int) []ScoreEntry {
	entries := make([]ScoreEntry, 0, len(users))
	for _, user := range users {
		entries = append(entries, ScoreEntry{Username: user.Username, Score: user.Score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
