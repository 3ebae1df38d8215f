package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/roe7878/studybot-roe/internal/db"
	"github.com/roe7878/studybot-roe/internal/models"
	"github.com/roe7878/studybot-roe/internal/timeparse"
)

// Normal outcomes of the start/end state machine, not faults.
var (
	ErrAlreadyOpen = errors.New("session already in progress")
	ErrNoOpen      = errors.New("no session in progress")
)

// AllGroups widens per-user reads to every group the user recorded in.
const AllGroups int64 = -1

const sessionCols = `id, user_id, user_name, group_id, start_ts, end_ts, duration_seconds`

type SessionRepo struct {
	db  *sql.DB
	loc *time.Location
}

func NewSessionRepo(database *db.Db, loc *time.Location) *SessionRepo {
	return &SessionRepo{
		db:  database.DB,
		loc: loc,
	}
}

// Start opens a session for (userID, groupID) at now. The open-row
// check and the insert run in one transaction with the open row locked,
// and a partial unique index on open rows backstops the invariant, so
// two concurrent starts cannot both succeed. The caller's current
// display name is written on the new row; ranking reads the newest row
// per user, which keeps leaderboard names current.
func (repo *SessionRepo) Start(ctx context.Context, userID int64, userName string, groupID int64, now time.Time) (int64, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sessions start: begin: %w", err)
	}
	defer tx.Rollback()

	var openID int64
	err = tx.QueryRowContext(ctx, `
SELECT id FROM sessions
WHERE user_id = $1 AND group_id = $2 AND end_ts IS NULL
ORDER BY id DESC
LIMIT 1
FOR UPDATE
`, userID, groupID).Scan(&openID)
	switch {
	case err == nil:
		return 0, ErrAlreadyOpen
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("sessions start: check open: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO sessions (user_id, user_name, group_id, start_ts)
VALUES ($1, $2, $3, $4)
RETURNING id
`, userID, nullifyEmpty(userName), groupID, strconv.FormatInt(now.Unix(), 10)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyOpen
		}
		return 0, fmt.Errorf("sessions start: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sessions start: commit: %w", err)
	}
	return id, nil
}

// Finish closes the newest open session for (userID, groupID) at now
// and returns it with its duration. There is at most one open row by
// invariant; newest-by-id is the tie-break should a migration ever have
// violated it.
func (repo *SessionRepo) Finish(ctx context.Context, userID, groupID int64, now time.Time) (*models.Session, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sessions finish: begin: %w", err)
	}
	defer tx.Rollback()

	var (
		id       int64
		rawStart string
		name     sql.NullString
	)
	err = tx.QueryRowContext(ctx, `
SELECT id, start_ts, user_name FROM sessions
WHERE user_id = $1 AND group_id = $2 AND end_ts IS NULL
ORDER BY id DESC
LIMIT 1
FOR UPDATE
`, userID, groupID).Scan(&id, &rawStart, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoOpen
	}
	if err != nil {
		return nil, fmt.Errorf("sessions finish: find open: %w", err)
	}

	start, err := timeparse.EpochSeconds(rawStart, repo.loc)
	if err != nil {
		return nil, fmt.Errorf("sessions finish: row %d: %w", id, err)
	}

	end := now.Unix()
	dur := end - start
	if dur < 0 { // clock skew
		dur = 0
	}

	res, err := tx.ExecContext(ctx, `
UPDATE sessions SET end_ts = $1, duration_seconds = $2 WHERE id = $3
`, strconv.FormatInt(end, 10), dur, id)
	if err != nil {
		return nil, fmt.Errorf("sessions finish: update: %w", err)
	}
	if err := ensureRowsAffected(res, fmt.Sprintf("sessions finish: row %d vanished", id)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sessions finish: commit: %w", err)
	}

	return &models.Session{
		ID:       id,
		UserID:   userID,
		UserName: name.String,
		GroupID:  groupID,
		StartTS:  start,
		EndTS:    end,
		Duration: dur,
	}, nil
}

// ClosedByUser returns every closed session for the user, oldest first.
// Pass AllGroups to aggregate across every chat the user recorded in.
func (repo *SessionRepo) ClosedByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error) {
	return repo.byUser(ctx, userID, groupID, false)
}

// OpenByUser returns the user's open sessions (at most one per group).
func (repo *SessionRepo) OpenByUser(ctx context.Context, userID, groupID int64) ([]models.Session, error) {
	return repo.byUser(ctx, userID, groupID, true)
}

func (repo *SessionRepo) byUser(ctx context.Context, userID, groupID int64, open bool) ([]models.Session, error) {
	pred := "IS NOT NULL"
	if open {
		pred = "IS NULL"
	}
	q := `SELECT ` + sessionCols + ` FROM sessions WHERE user_id = $1 AND end_ts ` + pred
	args := []any{userID}
	if groupID != AllGroups {
		q += ` AND group_id = $2`
		args = append(args, groupID)
	}
	q += ` ORDER BY id`
	return repo.querySessions(ctx, q, args...)
}

// ClosedByGroup returns every closed session in the group, oldest first.
func (repo *SessionRepo) ClosedByGroup(ctx context.Context, groupID int64) ([]models.Session, error) {
	return repo.querySessions(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE group_id = $1 AND end_ts IS NOT NULL ORDER BY id`,
		groupID)
}

// OpenByGroup returns the group's open sessions, oldest first.
func (repo *SessionRepo) OpenByGroup(ctx context.Context, groupID int64) ([]models.Session, error) {
	return repo.querySessions(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE group_id = $1 AND end_ts IS NULL ORDER BY id`,
		groupID)
}

// RecentByUser returns the user's newest sessions across all groups.
func (repo *SessionRepo) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	return repo.querySessions(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit)
}

func (repo *SessionRepo) querySessions(ctx context.Context, q string, args ...any) ([]models.Session, error) {
	rows, err := repo.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sessions query: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		var (
			s        models.Session
			name     sql.NullString
			rawStart string
			rawEnd   sql.NullString
			dur      sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.UserID, &name, &s.GroupID, &rawStart, &rawEnd, &dur); err != nil {
			return nil, fmt.Errorf("sessions scan: %w", err)
		}
		s.UserName = name.String
		s.Duration = dur.Int64

		s.StartTS, err = timeparse.EpochSeconds(rawStart, repo.loc)
		if err != nil {
			return nil, fmt.Errorf("sessions row %d: start_ts: %w", s.ID, err)
		}
		if rawEnd.Valid {
			s.EndTS, err = timeparse.EpochSeconds(rawEnd.String, repo.loc)
			if err != nil {
				return nil, fmt.Errorf("sessions row %d: end_ts: %w", s.ID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// NormalizeLegacyTimestamps rewrites string-encoded start/end values to
// epoch seconds and fills duration_seconds where a closed legacy row is
// missing it (floored at zero). Run once at startup; afterwards the
// string branch of the normalizer is cold. Returns the number of rows
// rewritten.
func (repo *SessionRepo) NormalizeLegacyTimestamps(ctx context.Context) (int64, error) {
	rows, err := repo.db.QueryContext(ctx, `
SELECT id, start_ts, end_ts, duration_seconds FROM sessions
WHERE start_ts !~ '^-?[0-9]+$'
   OR (end_ts IS NOT NULL AND end_ts !~ '^-?[0-9]+$')
   OR (end_ts IS NOT NULL AND duration_seconds IS NULL)
ORDER BY id
`)
	if err != nil {
		return 0, fmt.Errorf("legacy backfill: select: %w", err)
	}
	defer rows.Close()

	type fix struct {
		id    int64
		start int64
		end   sql.NullInt64
		dur   sql.NullInt64
	}
	var fixes []fix
	for rows.Next() {
		var (
			f        fix
			rawStart string
			rawEnd   sql.NullString
			dur      sql.NullInt64
		)
		if err := rows.Scan(&f.id, &rawStart, &rawEnd, &dur); err != nil {
			return 0, fmt.Errorf("legacy backfill: scan: %w", err)
		}

		f.start, err = timeparse.EpochSeconds(rawStart, repo.loc)
		if err != nil {
			return 0, fmt.Errorf("legacy backfill: row %d: start_ts: %w", f.id, err)
		}
		if rawEnd.Valid {
			end, err := timeparse.EpochSeconds(rawEnd.String, repo.loc)
			if err != nil {
				return 0, fmt.Errorf("legacy backfill: row %d: end_ts: %w", f.id, err)
			}
			f.end = sql.NullInt64{Int64: end, Valid: true}
			if dur.Valid {
				f.dur = dur
			} else {
				d := end - f.start
				if d < 0 {
					d = 0
				}
				f.dur = sql.NullInt64{Int64: d, Valid: true}
			}
		}
		fixes = append(fixes, f)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("legacy backfill: %w", err)
	}
	if len(fixes) == 0 {
		return 0, nil
	}

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("legacy backfill: begin: %w", err)
	}
	defer tx.Rollback()

	for _, f := range fixes {
		var end any
		if f.end.Valid {
			end = strconv.FormatInt(f.end.Int64, 10)
		}
		_, err := tx.ExecContext(ctx, `
UPDATE sessions SET start_ts = $1, end_ts = $2, duration_seconds = $3 WHERE id = $4
`, strconv.FormatInt(f.start, 10), end, f.dur, f.id)
		if err != nil {
			return 0, fmt.Errorf("legacy backfill: row %d: %w", f.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("legacy backfill: commit: %w", err)
	}
	return int64(len(fixes)), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
