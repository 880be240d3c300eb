package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/trellislearn/trellis-server/internal/domain"
	"github.com/trellislearn/trellis-server/internal/journey"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. The collection-valued
// parts of a snapshot (journeys, titles, activity days) are stored as
// JSON document columns so a snapshot save is a single row write.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		current_course TEXT,
		current_section_id INTEGER NOT NULL DEFAULT 1,
		progress INTEGER NOT NULL DEFAULT 0,
		xp INTEGER NOT NULL DEFAULT 0,
		xp_today INTEGER NOT NULL DEFAULT 0,
		exercises_completed_today INTEGER NOT NULL DEFAULT 0,
		first_try_solves INTEGER NOT NULL DEFAULT 0,
		summaries_today INTEGER NOT NULL DEFAULT 0,
		sections_mastered_today INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0,
		last_activity INTEGER,
		notes_count INTEGER NOT NULL DEFAULT 0,
		selected_title TEXT,
		unlocked_titles_json TEXT NOT NULL DEFAULT '[]',
		activity_days_json TEXT NOT NULL DEFAULT '[]',
		journeys_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp DESC);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSnapshot retrieves the progress snapshot for a user.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, userID string) (*domain.Snapshot, error) {
	query := `
		SELECT user_id, username, current_course, current_section_id, progress,
		       xp, xp_today, exercises_completed_today, first_try_solves,
		       summaries_today, sections_mastered_today, streak, last_activity,
		       notes_count, selected_title, unlocked_titles_json,
		       activity_days_json, journeys_json, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var snap domain.Snapshot
	var currentCourse, selectedTitle sql.NullString
	var lastActivity sql.NullInt64
	var titlesJSON, daysJSON, journeysJSON string
	var createdAt, updatedAt int64

	err := row.Scan(
		&snap.UserID, &snap.Username, &currentCourse, &snap.CurrentSectionID, &snap.Progress,
		&snap.XP, &snap.XPToday, &snap.ExercisesCompletedToday, &snap.FirstTrySolves,
		&snap.SummariesToday, &snap.SectionsMasteredToday, &snap.Streak, &lastActivity,
		&snap.NotesCount, &selectedTitle, &titlesJSON,
		&daysJSON, &journeysJSON, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan snapshot row: %w", err)
	}

	snap.CurrentCourse = currentCourse.String
	snap.SelectedTitle = selectedTitle.String
	if lastActivity.Valid {
		ts := time.Unix(lastActivity.Int64, 0)
		snap.LastActivity = &ts
	}
	snap.CreatedAt = time.Unix(createdAt, 0)
	snap.UpdatedAt = time.Unix(updatedAt, 0)

	if err := json.Unmarshal([]byte(titlesJSON), &snap.UnlockedTitles); err != nil {
		return nil, fmt.Errorf("decode unlocked titles: %w", err)
	}
	if err := json.Unmarshal([]byte(daysJSON), &snap.ActivityDays); err != nil {
		return nil, fmt.Errorf("decode activity days: %w", err)
	}
	if err := json.Unmarshal([]byte(journeysJSON), &snap.Journeys); err != nil {
		return nil, fmt.Errorf("decode journeys: %w", err)
	}

	return &snap, nil
}

// SaveSnapshot creates or replaces a user's snapshot in one row write.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	titlesJSON, err := encodeList(snap.UnlockedTitles)
	if err != nil {
		return fmt.Errorf("encode unlocked titles: %w", err)
	}
	daysJSON, err := encodeList(snap.ActivityDays)
	if err != nil {
		return fmt.Errorf("encode activity days: %w", err)
	}
	journeysJSON, err := encodeJourneys(snap.Journeys)
	if err != nil {
		return fmt.Errorf("encode journeys: %w", err)
	}

	query := `
	INSERT INTO users (
		user_id, username, current_course, current_section_id, progress,
		xp, xp_today, exercises_completed_today, first_try_solves,
		summaries_today, sections_mastered_today, streak, last_activity,
		notes_count, selected_title, unlocked_titles_json,
		activity_days_json, journeys_json, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		current_course = excluded.current_course,
		current_section_id = excluded.current_section_id,
		progress = excluded.progress,
		xp = excluded.xp,
		xp_today = excluded.xp_today,
		exercises_completed_today = excluded.exercises_completed_today,
		first_try_solves = excluded.first_try_solves,
		summaries_today = excluded.summaries_today,
		sections_mastered_today = excluded.sections_mastered_today,
		streak = excluded.streak,
		last_activity = excluded.last_activity,
		notes_count = excluded.notes_count,
		selected_title = excluded.selected_title,
		unlocked_titles_json = excluded.unlocked_titles_json,
		activity_days_json = excluded.activity_days_json,
		journeys_json = excluded.journeys_json,
		updated_at = excluded.updated_at`

	var currentCourse, selectedTitle interface{}
	if snap.CurrentCourse != "" {
		currentCourse = snap.CurrentCourse
	}
	if snap.SelectedTitle != "" {
		selectedTitle = snap.SelectedTitle
	}
	var lastActivity interface{}
	if snap.LastActivity != nil {
		lastActivity = snap.LastActivity.Unix()
	}

	_, err = s.db.ExecContext(ctx, query,
		snap.UserID, snap.Username, currentCourse, snap.CurrentSectionID, snap.Progress,
		snap.XP, snap.XPToday, snap.ExercisesCompletedToday, snap.FirstTrySolves,
		snap.SummariesToday, snap.SectionsMasteredToday, snap.Streak, lastActivity,
		snap.NotesCount, selectedTitle, titlesJSON,
		daysJSON, journeysJSON, snap.CreatedAt.Unix(), snap.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Leaderboard returns the top users ordered by XP descending.
func (s *SQLiteStore) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	query := `
		SELECT user_id, username, xp, selected_title
		FROM users ORDER BY xp DESC, user_id ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close leaderboard rows", "error", closeErr)
		}
	}()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var selectedTitle sql.NullString
		if err := rows.Scan(&e.UserID, &e.Username, &e.XP, &selectedTitle); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		e.SelectedTitle = selectedTitle.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}

	return entries, nil
}

// CountUsers returns the total number of stored snapshots.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// encodeList marshals a string slice, mapping nil to an empty JSON array
// so the stored document never carries JSON null.
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeJourneys(journeys []journey.Raw) (string, error) {
	if journeys == nil {
		journeys = []journey.Raw{}
	}
	b, err := json.Marshal(journeys)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
