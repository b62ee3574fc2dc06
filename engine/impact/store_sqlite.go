package impact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/pkg/repo"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS actions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	action_type  TEXT NOT NULL,
	quantity     REAL NOT NULL,
	unit         TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	verified     INTEGER NOT NULL DEFAULT 0,
	timestamp    TEXT NOT NULL,
	co2_kg       REAL NOT NULL,
	energy_kwh   REAL NOT NULL,
	water_liters REAL NOT NULL,
	waste_kg     REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_user ON actions(user_id);

CREATE TABLE IF NOT EXISTS goals (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	metric     TEXT NOT NULL,
	target     REAL NOT NULL,
	current    REAL NOT NULL,
	status     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	deadline   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id);
`

// SQLiteStore persists action records in a SQLite database. The actions
// table has no UPDATE or DELETE path; the ledger stays append-only at the
// schema level too.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the ledger database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, domain.NewPersistenceError("open", path, nil, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, domain.NewPersistenceError("migrate", path, nil, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the handle so goal storage can share the same database file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Append(ctx context.Context, rec domain.ActionRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actions
		(id, user_id, action_type, quantity, unit, description, location, verified,
		 timestamp, co2_kg, energy_kwh, water_liters, waste_kg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.ActionType, rec.Quantity, rec.Unit,
		rec.Description, rec.Location, rec.Verified,
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.Impact.CO2Kg, rec.Impact.EnergyKWh, rec.Impact.WaterLiters, rec.Impact.WasteKg,
	)
	if err != nil {
		return domain.NewPersistenceError("insert", s.path, rec, err)
	}
	return nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID string) ([]domain.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, action_type, quantity, unit, description, location, verified,
		       timestamp, co2_kg, energy_kwh, water_liters, waste_kg
		FROM actions WHERE user_id = ? ORDER BY timestamp`, userID)
	if err != nil {
		return nil, domain.NewPersistenceError("query", s.path, nil, err)
	}
	defer rows.Close()

	var recs []domain.ActionRecord
	for rows.Next() {
		var rec domain.ActionRecord
		var ts string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ActionType, &rec.Quantity, &rec.Unit,
			&rec.Description, &rec.Location, &rec.Verified, &ts,
			&rec.Impact.CO2Kg, &rec.Impact.EnergyKWh, &rec.Impact.WaterLiters, &rec.Impact.WasteKg); err != nil {
			return nil, domain.NewPersistenceError("scan", s.path, nil, err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, domain.NewPersistenceError("scan", s.path, nil, fmt.Errorf("timestamp %q: %w", ts, err))
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("query", s.path, nil, err)
	}
	return recs, nil
}

func (s *SQLiteStore) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM actions ORDER BY user_id`)
	if err != nil {
		return nil, domain.NewPersistenceError("query", s.path, nil, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, domain.NewPersistenceError("scan", s.path, nil, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("query", s.path, nil, err)
	}
	return users, nil
}

// SQLiteGoals implements goal storage over the same database file as the
// ledger.
type SQLiteGoals struct {
	db   *sql.DB
	path string
}

var _ repo.Repository[domain.Goal, string] = (*SQLiteGoals)(nil)

// NewSQLiteGoals wraps a ledger store's database for goal storage.
func NewSQLiteGoals(store *SQLiteStore) *SQLiteGoals {
	return &SQLiteGoals{db: store.db, path: store.path}
}

func (g *SQLiteGoals) Get(ctx context.Context, id string) (domain.Goal, error) {
	row := g.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, metric, target, current, status, created_at, deadline
		FROM goals WHERE id = ?`, id)
	goal, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Goal{}, repo.ErrNotFound
	}
	if err != nil {
		return domain.Goal{}, domain.NewPersistenceError("query", g.path, nil, err)
	}
	return goal, nil
}

func (g *SQLiteGoals) List(ctx context.Context, opts repo.ListOpts) ([]domain.Goal, error) {
	query := `SELECT id, user_id, title, metric, target, current, status, created_at, deadline FROM goals`
	var args []any
	if uid, ok := opts.Filter["user_id"].(string); ok {
		query += ` WHERE user_id = ?`
		args = append(args, uid)
	}
	query += ` ORDER BY created_at`
	if opts.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, opts.Limit, opts.Offset)
	}

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewPersistenceError("query", g.path, nil, err)
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, domain.NewPersistenceError("scan", g.path, nil, err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewPersistenceError("query", g.path, nil, err)
	}
	return goals, nil
}

func (g *SQLiteGoals) Create(ctx context.Context, goal domain.Goal) (domain.Goal, error) {
	deadline := ""
	if !goal.Deadline.IsZero() {
		deadline = goal.Deadline.Format(time.RFC3339Nano)
	}
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, title, metric, target, current, status, created_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.UserID, goal.Title, string(goal.Metric), goal.Target, goal.Current,
		string(goal.Status), goal.CreatedAt.Format(time.RFC3339Nano), deadline,
	)
	if err != nil {
		return domain.Goal{}, domain.NewPersistenceError("insert", g.path, goal, err)
	}
	return goal, nil
}

func (g *SQLiteGoals) Update(ctx context.Context, goal domain.Goal) (domain.Goal, error) {
	res, err := g.db.ExecContext(ctx, `
		UPDATE goals SET current = ?, status = ? WHERE id = ?`,
		goal.Current, string(goal.Status), goal.ID,
	)
	if err != nil {
		return domain.Goal{}, domain.NewPersistenceError("update", g.path, goal, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Goal{}, repo.ErrNotFound
	}
	return goal, nil
}

func (g *SQLiteGoals) Delete(ctx context.Context, id string) error {
	res, err := g.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return domain.NewPersistenceError("delete", g.path, nil, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanGoal(row rowScanner) (domain.Goal, error) {
	var goal domain.Goal
	var metric, status, created, deadline string
	if err := row.Scan(&goal.ID, &goal.UserID, &goal.Title, &metric, &goal.Target,
		&goal.Current, &status, &created, &deadline); err != nil {
		return domain.Goal{}, err
	}
	goal.Metric = domain.Metric(metric)
	goal.Status = domain.GoalStatus(status)
	var err error
	goal.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.Goal{}, fmt.Errorf("created_at %q: %w", created, err)
	}
	if deadline != "" {
		goal.Deadline, err = time.Parse(time.RFC3339Nano, deadline)
		if err != nil {
			return domain.Goal{}, fmt.Errorf("deadline %q: %w", deadline, err)
		}
	}
	return goal, nil
}
