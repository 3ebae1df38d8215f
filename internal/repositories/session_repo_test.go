package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestSessionRepo_StartAndFinish(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()
	t0 := time.Date(2025, 6, 10, 20, 0, 0, 0, testLoc)

	id, err := repo.Start(ctx, 1001, "ann", 500, t0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected id != 0")
	}

	var endTS sql.NullString
	var dur sql.NullInt64
	if err := testDatabase.DB.QueryRow(`SELECT end_ts, duration_seconds FROM sessions WHERE id=$1`, id).Scan(&endTS, &dur); err != nil {
		t.Fatalf("select open row: %v", err)
	}
	if endTS.Valid || dur.Valid {
		t.Fatalf("expected open row, got end_ts=%v duration=%v", endTS, dur)
	}

	session, err := repo.Finish(ctx, 1001, 500, t0.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if session.ID != id {
		t.Fatalf("expected session %d closed, got %d", id, session.ID)
	}
	if session.Duration != 90 {
		t.Fatalf("expected duration 90, got %d", session.Duration)
	}

	var gotDur int64
	if err := testDatabase.DB.QueryRow(`SELECT duration_seconds FROM sessions WHERE id=$1`, id).Scan(&gotDur); err != nil {
		t.Fatalf("select closed row: %v", err)
	}
	if gotDur != 90 {
		t.Fatalf("expected persisted duration 90, got %d", gotDur)
	}
}

func TestSessionRepo_StartWhileOpen(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()
	now := time.Now().In(testLoc)

	if _, err := repo.Start(ctx, 42, "ann", 500, now); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	_, err := repo.Start(ctx, 42, "ann", 500, now.Add(time.Minute))
	if !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("expected ErrAlreadyOpen, got %v", err)
	}

	var cnt int
	if err := testDatabase.DB.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id=42 AND group_id=500`).Scan(&cnt); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("rejected start must not create a row, got %d rows", cnt)
	}

	// a different group is an independent scope
	if _, err := repo.Start(ctx, 42, "ann", 600, now); err != nil {
		t.Fatalf("Start in other group: %v", err)
	}
}

func TestSessionRepo_FinishWithoutOpen(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()

	_, err := repo.Finish(context.Background(), 42, 500, time.Now())
	if !errors.Is(err, ErrNoOpen) {
		t.Fatalf("expected ErrNoOpen, got %v", err)
	}
}

func TestSessionRepo_DurationFlooredAtZero(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()
	t0 := time.Date(2025, 6, 10, 20, 0, 0, 0, testLoc)

	if _, err := repo.Start(ctx, 7, "ann", 500, t0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// clock skew: finish before the recorded start
	session, err := repo.Finish(ctx, 7, 500, t0.Add(-10*time.Second))
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if session.Duration != 0 {
		t.Fatalf("expected duration floored to 0, got %d", session.Duration)
	}
}

func TestSessionRepo_ConcurrentStart(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	now := time.Now().In(testLoc)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.Start(context.Background(), 77, "ann", 500, now)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyOpen):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || rejected != attempts-1 {
		t.Fatalf("expected exactly one winner, got ok=%d rejected=%d", ok, rejected)
	}

	var cnt int
	if err := testDatabase.DB.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id=77 AND end_ts IS NULL`).Scan(&cnt); err != nil {
		t.Fatalf("count open rows: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected exactly one open row, got %d", cnt)
	}
}

func TestSessionRepo_MixedEncodingsNormalizeOnRead(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()

	legacyStart := time.Date(2024, 3, 1, 10, 0, 0, 0, testLoc)
	legacyEnd := legacyStart.Add(30 * time.Minute)

	// legacy row: naive ISO strings
	if _, err := testDatabase.Exec(`
INSERT INTO sessions (user_id, user_name, group_id, start_ts, end_ts, duration_seconds)
VALUES (9, 'ann', 500, '2024-03-01T10:00:00', '2024-03-01T10:30:00', 1800)
`); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	// current row: epoch seconds
	if _, err := testDatabase.Exec(`
INSERT INTO sessions (user_id, user_name, group_id, start_ts, end_ts, duration_seconds)
VALUES (9, 'ann', 500, '1710000000', '1710000600', 600)
`); err != nil {
		t.Fatalf("insert epoch row: %v", err)
	}

	sessions, err := repo.ClosedByUser(ctx, 9, 500)
	if err != nil {
		t.Fatalf("ClosedByUser: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	if sessions[0].StartTS != legacyStart.Unix() || sessions[0].EndTS != legacyEnd.Unix() {
		t.Fatalf("legacy row not normalized: %+v", sessions[0])
	}
	if sessions[1].StartTS != 1710000000 || sessions[1].EndTS != 1710000600 {
		t.Fatalf("epoch row mangled: %+v", sessions[1])
	}
}

func TestSessionRepo_NormalizeLegacyTimestamps(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()

	legacyStart := time.Date(2024, 3, 1, 10, 0, 0, 0, testLoc)

	// closed legacy row missing its duration, open legacy row, and a
	// current-format row the backfill must not touch
	if _, err := testDatabase.Exec(`
INSERT INTO sessions (user_id, user_name, group_id, start_ts, end_ts)
VALUES (1, 'ann', 500, '2024-03-01T10:00:00', '2024-03-01T10:30:00')
`); err != nil {
		t.Fatalf("insert closed legacy row: %v", err)
	}
	if _, err := testDatabase.Exec(`
INSERT INTO sessions (user_id, user_name, group_id, start_ts)
VALUES (2, 'bob', 500, '2024-03-01T11:00:00')
`); err != nil {
		t.Fatalf("insert open legacy row: %v", err)
	}
	if _, err := testDatabase.Exec(`
INSERT INTO sessions (user_id, user_name, group_id, start_ts, end_ts, duration_seconds)
VALUES (3, 'cat', 500, '1710000000', '1710000600', 600)
`); err != nil {
		t.Fatalf("insert current row: %v", err)
	}

	fixed, err := repo.NormalizeLegacyTimestamps(ctx)
	if err != nil {
		t.Fatalf("NormalizeLegacyTimestamps: %v", err)
	}
	if fixed != 2 {
		t.Fatalf("expected 2 rows rewritten, got %d", fixed)
	}

	var startTS string
	var dur sql.NullInt64
	if err := testDatabase.DB.QueryRow(`SELECT start_ts, duration_seconds FROM sessions WHERE user_id=1`).Scan(&startTS, &dur); err != nil {
		t.Fatalf("select closed row: %v", err)
	}
	wantStart := legacyStart.Unix()
	if startTS != strconv.FormatInt(wantStart, 10) {
		t.Fatalf("expected start_ts %d, got %q", wantStart, startTS)
	}
	if !dur.Valid || dur.Int64 != 1800 {
		t.Fatalf("expected backfilled duration 1800, got %v", dur)
	}

	var endTS sql.NullString
	if err := testDatabase.DB.QueryRow(`SELECT end_ts FROM sessions WHERE user_id=2`).Scan(&endTS); err != nil {
		t.Fatalf("select open row: %v", err)
	}
	if endTS.Valid {
		t.Fatalf("open row must stay open, got end_ts=%v", endTS)
	}

	// steady state: a second pass has nothing to do
	fixed, err = repo.NormalizeLegacyTimestamps(ctx)
	if err != nil {
		t.Fatalf("second NormalizeLegacyTimestamps: %v", err)
	}
	if fixed != 0 {
		t.Fatalf("expected idempotent backfill, got %d rows", fixed)
	}
}

func TestSessionRepo_RecentByUserNewestFirst(t *testing.T) {
	cleanDB(t)

	repo := newRepoForTest()
	ctx := context.Background()
	t0 := time.Date(2025, 6, 10, 9, 0, 0, 0, testLoc)

	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * time.Hour)
		if _, err := repo.Start(ctx, 5, "ann", 500, start); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		if _, err := repo.Finish(ctx, 5, 500, start.Add(10*time.Minute)); err != nil {
			t.Fatalf("Finish %d: %v", i, err)
		}
	}

	sessions, err := repo.RecentByUser(ctx, 5, 2)
	if err != nil {
		t.Fatalf("RecentByUser: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID <= sessions[1].ID {
		t.Fatalf("expected newest first, got ids %d, %d", sessions[0].ID, sessions[1].ID)
	}
}
