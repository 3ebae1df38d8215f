package models

// Session - one interval of study activity for a user within a group.
// EndTS == 0 means the session is still open; Duration is only
// meaningful once the session is closed.
type Session struct {
	ID       int64
	UserID   int64
	UserName string
	GroupID  int64
	StartTS  int64 // epoch seconds
	EndTS    int64 // epoch seconds, 0 while open
	Duration int64 // seconds, set exactly once on close
}

func (s *Session) Open() bool {
	return s.EndTS == 0
}

// LeaderboardEntry - one row of a group ranking.
type LeaderboardEntry struct {
	UserID       int64
	UserName     string
	TotalSeconds int64
}

// OverallStats - all-time summary for a group.
type OverallStats struct {
	Recorders    int
	TotalSeconds int64
	AvgSeconds   int64
	Top          []LeaderboardEntry
}
