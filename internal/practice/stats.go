package practice

// Aggregate summarises a learner's sessions. Averages, item counts and the
// favorite mode only consider completed sessions; ties for favorite mode go to
// the mode declared first.
func Aggregate(sessions []Session) Stats {
	var stats Stats
	stats.TotalSessions = len(sessions)

	modeCounts := make(map[Mode]int, len(Modes))
	scoreSum := 0
	for i := range sessions {
		s := &sessions[i]
		if stats.LastPracticed == nil || s.StartedAt.After(*stats.LastPracticed) {
			at := s.StartedAt
			stats.LastPracticed = &at
		}
		if s.Status != StatusCompleted {
			continue
		}
		stats.CompletedSessions++
		scoreSum += s.Score
		stats.TotalFlagsPracticed += len(s.FlagIDs)
		modeCounts[s.Mode]++
	}

	if stats.CompletedSessions > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.CompletedSessions)

		best := 0
		for _, m := range Modes {
			if c := modeCounts[m]; c > best {
				mode := m
				stats.FavoriteMode = &mode
				best = c
			}
		}
	}
	return stats
}
