// Package store persists journal entries, goals, and check-ins in SQLite.
// All operations are scoped by user id. The pure-Go driver keeps the module
// cgo-free.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tradementor/internal/logging"
	"tradementor/internal/types"
)

// timeFormat is fixed-width UTC so stored timestamps sort lexicographically.
const timeFormat = "2006-01-02 15:04:05.000000000"

// JournalStore implements persistence for the journal action engine.
type JournalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewJournalStore opens (or creates) the SQLite database at the given path.
// Use ":memory:" for tests.
func NewJournalStore(path string) (*JournalStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &JournalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the required tables and enables cascade deletes.
func (s *JournalStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS journal_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		market TEXT NOT NULL DEFAULT '',
		emotions TEXT NOT NULL DEFAULT '',
		mistakes TEXT NOT NULL DEFAULT '',
		lessons TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		trades TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_user_date ON journal_entries(user_id, entry_date);

	CREATE TABLE IF NOT EXISTS journal_goals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_text TEXT NOT NULL,
		target TEXT NOT NULL DEFAULT '',
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_user_status ON journal_goals(user_id, status);

	CREATE TABLE IF NOT EXISTS journal_checkins (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		goal_id TEXT NOT NULL REFERENCES journal_goals(id) ON DELETE CASCADE,
		note TEXT NOT NULL DEFAULT '',
		score INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_checkins_goal ON journal_checkins(goal_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.StoreDebug("journal store initialized at %s", s.dbPath)
	return nil
}

// Close closes the underlying database.
func (s *JournalStore) Close() error {
	return s.db.Close()
}

// GetDB exposes the raw handle for maintenance tooling.
func (s *JournalStore) GetDB() *sql.DB {
	return s.db
}

// =============================================================================
// ENTRIES
// =============================================================================

// CreateEntry persists one journal entry.
func (s *JournalStore) CreateEntry(ctx context.Context, e *types.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	trades, err := json.Marshal(e.Trades)
	if err != nil {
		return fmt.Errorf("failed to encode trades: %w", err)
	}

	logging.StoreDebug("creating entry id=%s user=%s tags=%d", e.ID, e.UserID, len(e.Tags))

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (id, user_id, entry_date, market, emotions, mistakes, lessons, tags, trades, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Date.UTC().Format(timeFormat),
		e.Market, e.Emotions, e.Mistakes, e.Lessons,
		string(tags), string(trades), e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to create entry %s: %v", e.ID, err)
		return fmt.Errorf("failed to create entry: %w", err)
	}
	return nil
}

// ListEntries returns a user's entries, newest first. Date bounds are
// inclusive; a tag filter matches case-insensitively; Limit 0 means no cap.
func (s *JournalStore) ListEntries(ctx context.Context, userID string, f types.EntryFilter) ([]types.JournalEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListEntries")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, user_id, entry_date, market, emotions, mistakes, lessons, tags, trades, created_at
	          FROM journal_entries WHERE user_id = ?`
	args := []interface{}{userID}

	if f.From != nil {
		query += " AND entry_date >= ?"
		args = append(args, f.From.UTC().Format(timeFormat))
	}
	if f.To != nil {
		query += " AND entry_date <= ?"
		args = append(args, f.To.UTC().Format(timeFormat))
	}
	query += " ORDER BY entry_date DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to list entries for %s: %v", userID, err)
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []types.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		// Tags live in a JSON column, so tag membership is filtered here
		// rather than in SQL.
		if f.Tag != "" && !e.HasTag(f.Tag) {
			continue
		}
		entries = append(entries, e)
		if f.Limit > 0 && len(entries) >= f.Limit {
			break
		}
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (types.JournalEntry, error) {
	var e types.JournalEntry
	var dateStr, tagsJSON, tradesJSON, createdStr string

	if err := rows.Scan(&e.ID, &e.UserID, &dateStr, &e.Market, &e.Emotions,
		&e.Mistakes, &e.Lessons, &tagsJSON, &tradesJSON, &createdStr); err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	var err error
	if e.Date, err = parseStoredTime(dateStr); err != nil {
		return e, err
	}
	if e.CreatedAt, err = parseStoredTime(createdStr); err != nil {
		return e, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return e, fmt.Errorf("failed to decode tags for %s: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(tradesJSON), &e.Trades); err != nil {
		return e, fmt.Errorf("failed to decode trades for %s: %w", e.ID, err)
	}
	return e, nil
}

// =============================================================================
// GOALS
// =============================================================================

// CreateGoal persists one goal.
func (s *JournalStore) CreateGoal(ctx context.Context, g *types.JournalGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due interface{}
	if g.Due != nil {
		due = g.Due.UTC().Format(timeFormat)
	}

	logging.StoreDebug("creating goal id=%s user=%s", g.ID, g.UserID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_goals (id, user_id, goal_text, target, due_date, status, progress, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Text, g.Target, due, string(g.Status), g.Progress,
		g.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to create goal %s: %v", g.ID, err)
		return fmt.Errorf("failed to create goal: %w", err)
	}
	return nil
}

// FindActiveGoal returns the most recently created ACTIVE goal for the user,
// along with how many ACTIVE goals exist in total. Returns (nil, 0, nil)
// when the user has no active goal.
func (s *JournalStore) FindActiveGoal(ctx context.Context, userID string) (*types.JournalGoal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM journal_goals WHERE user_id = ? AND status = ?",
		userID, string(types.GoalActive),
	).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("failed to count active goals: %w", err)
	}
	if count == 0 {
		return nil, 0, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, goal_text, target, due_date, status, progress, created_at
		 FROM journal_goals WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		userID, string(types.GoalActive),
	)

	g, err := scanGoalRow(row)
	if err != nil {
		return nil, 0, err
	}
	return g, count, nil
}

// ListGoalsWithCheckIns returns all goals for the user, newest first, each
// with its check-ins (also newest first).
func (s *JournalStore) ListGoalsWithCheckIns(ctx context.Context, userID string) ([]types.GoalWithCheckIns, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListGoalsWithCheckIns")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, goal_text, target, due_date, status, progress, created_at
		 FROM journal_goals WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []types.GoalWithCheckIns
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, types.GoalWithCheckIns{Goal: *g})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ciRows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, goal_id, note, score, created_at
		 FROM journal_checkins WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	defer ciRows.Close()

	byGoal := make(map[string][]types.JournalCheckIn)
	for ciRows.Next() {
		var ci types.JournalCheckIn
		var score sql.NullInt64
		var createdStr string
		if err := ciRows.Scan(&ci.ID, &ci.UserID, &ci.GoalID, &ci.Note, &score, &createdStr); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		if score.Valid {
			v := int(score.Int64)
			ci.Score = &v
		}
		if ci.CreatedAt, err = parseStoredTime(createdStr); err != nil {
			return nil, err
		}
		byGoal[ci.GoalID] = append(byGoal[ci.GoalID], ci)
	}
	if err := ciRows.Err(); err != nil {
		return nil, err
	}

	for i := range goals {
		goals[i].CheckIns = byGoal[goals[i].Goal.ID]
	}
	return goals, nil
}

// UpdateGoalProgress sets progress and status on a goal. Only CHECKIN calls
// this; entries and check-ins themselves are immutable.
func (s *JournalStore) UpdateGoalProgress(ctx context.Context, goalID string, progress int, status types.GoalStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.StoreDebug("updating goal %s progress=%d status=%s", goalID, progress, status)

	res, err := s.db.ExecContext(ctx,
		"UPDATE journal_goals SET progress = ?, status = ? WHERE id = ?",
		progress, string(status), goalID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to update goal %s: %v", goalID, err)
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("goal %s not found", goalID)
	}
	return nil
}

// DeleteGoal removes a goal; its check-ins cascade.
func (s *JournalStore) DeleteGoal(ctx context.Context, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM journal_goals WHERE id = ?", goalID)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	return nil
}

func scanGoal(rows *sql.Rows) (*types.JournalGoal, error) {
	var g types.JournalGoal
	var status, createdStr string
	var due sql.NullString

	if err := rows.Scan(&g.ID, &g.UserID, &g.Text, &g.Target, &due, &status, &g.Progress, &createdStr); err != nil {
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	return finishGoal(&g, status, due, createdStr)
}

func scanGoalRow(row *sql.Row) (*types.JournalGoal, error) {
	var g types.JournalGoal
	var status, createdStr string
	var due sql.NullString

	if err := row.Scan(&g.ID, &g.UserID, &g.Text, &g.Target, &due, &status, &g.Progress, &createdStr); err != nil {
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	return finishGoal(&g, status, due, createdStr)
}

func finishGoal(g *types.JournalGoal, status string, due sql.NullString, createdStr string) (*types.JournalGoal, error) {
	g.Status = types.GoalStatus(status)
	if due.Valid {
		d, err := parseStoredTime(due.String)
		if err != nil {
			return nil, err
		}
		g.Due = &d
	}
	var err error
	if g.CreatedAt, err = parseStoredTime(createdStr); err != nil {
		return nil, err
	}
	return g, nil
}

// =============================================================================
// CHECK-INS
// =============================================================================

// CreateCheckIn persists one check-in against a goal.
func (s *JournalStore) CreateCheckIn(ctx context.Context, ci *types.JournalCheckIn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var score interface{}
	if ci.Score != nil {
		score = *ci.Score
	}

	logging.StoreDebug("creating check-in id=%s goal=%s", ci.ID, ci.GoalID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_checkins (id, user_id, goal_id, note, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ci.ID, ci.UserID, ci.GoalID, ci.Note, score, ci.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("failed to create check-in %s: %v", ci.ID, err)
		return fmt.Errorf("failed to create check-in: %w", err)
	}
	return nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Stats returns row counts per table.
func (s *JournalStore) Stats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int)
	for _, table := range []string{"journal_entries", "journal_goals", "journal_checkins"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}
