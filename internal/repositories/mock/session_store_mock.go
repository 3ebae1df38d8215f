package mock

import (
	"context"
	"sync"
	"time"

	"github.com/roe7878/studybot-roe/internal/models"
	"github.com/roe7878/studybot-roe/internal/repositories"
)

// FakeSessionStore - in-memory stand-in for the sessions table. It
// implements both the read interface the aggregation engine consumes
// and the start/finish writes the handlers use.
type FakeSessionStore struct {
	mu       sync.Mutex
	nextID   int64
	Sessions []models.Session

	// Err, when set, is returned by every call; simulates store failure.
	Err error
}

func (f *FakeSessionStore) Add(s models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	} else if s.ID > f.nextID {
		f.nextID = s.ID
	}
	f.Sessions = append(f.Sessions, s)
}

func (f *FakeSessionStore) Start(ctx context.Context, userID int64, userName string, groupID int64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	for _, s := range f.Sessions {
		if s.UserID == userID && s.GroupID == groupID && s.Open() {
			return 0, repositories.ErrAlreadyOpen
		}
	}
	f.nextID++
	f.Sessions = append(f.Sessions, models.Session{
		ID:       f.nextID,
		UserID:   userID,
		UserName: userName,
		GroupID:  groupID,
		StartTS:  now.Unix(),
	})
	return f.nextID, nil
}

func (f *FakeSessionStore) Finish(ctx context.Context, userID, groupID int64, now time.Time) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	for i := len(f.Sessions) - 1; i >= 0; i-- {
		s := &f.Sessions[i]
		if s.UserID == userID && s.GroupID == groupID && s.Open() {
			s.EndTS = now.Unix()
			s.Duration = s.EndTS - s.StartTS
			if s.Duration < 0 {
				s.Duration = 0
			}
			out := *s
			return &out, nil
		}
	}
	return nil, repositories.ErrNoOpen
}

func (f *FakeSessionStore) ClosedByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error) {
	return f.filter(func(s models.Session) bool {
		return s.UserID == userID && matchGroup(s, groupID) && !s.Open()
	})
}

func (f *FakeSessionStore) OpenByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error) {
	return f.filter(func(s models.Session) bool {
		return s.UserID == userID && matchGroup(s, groupID) && s.Open()
	})
}

func (f *FakeSessionStore) ClosedByGroup(ctx context.Context, groupID int64) ([]models.Session, error) {
	return f.filter(func(s models.Session) bool {
		return s.GroupID == groupID && !s.Open()
	})
}

func (f *FakeSessionStore) OpenByGroup(ctx context.Context, groupID int64) ([]models.Session, error) {
	return f.filter(func(s models.Session) bool {
		return s.GroupID == groupID && s.Open()
	})
}

func (f *FakeSessionStore) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	all, err := f.filter(func(s models.Session) bool {
		return s.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	// newest first
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *FakeSessionStore) filter(keep func(models.Session) bool) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []models.Session
	for _, s := range f.Sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func matchGroup(s models.Session, groupID int64) bool {
	return groupID == repositories.AllGroups || s.GroupID == groupID
}
