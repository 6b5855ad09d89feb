package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/flysch/matchd/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	location          TEXT,
	address           TEXT,
	city              TEXT,
	state             TEXT,
	zip_code          TEXT,
	country           TEXT,
	programs          TEXT NOT NULL DEFAULT '[]',
	fleet             TEXT,
	instructors_count INTEGER NOT NULL DEFAULT 0,
	trust_tier        TEXT,
	fsp_signals       TEXT,
	verified_at       DATETIME,
	claimed_by        TEXT,
	website           TEXT,
	phone             TEXT,
	email             TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_schools_name ON schools(name);
CREATE INDEX IF NOT EXISTS idx_schools_trust_tier ON schools(trust_tier);

CREATE TABLE IF NOT EXISTS match_sessions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT,
	inputs         TEXT NOT NULL,
	ranked_schools TEXT NOT NULL DEFAULT '[]',
	debrief        TEXT NOT NULL DEFAULT '',
	used_fallback  INTEGER NOT NULL DEFAULT 0,
	completed_at   DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_match_sessions_user_id ON match_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_match_sessions_created_at ON match_sessions(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListSchools(ctx context.Context, filter SchoolFilter) ([]model.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools WHERE 1=1`
	var args []any

	if filter.Search != "" {
		query += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+filter.Search+"%")
	}
	if len(filter.TrustTiers) > 0 {
		placeholders := make([]string, len(filter.TrustTiers))
		for i, t := range filter.TrustTiers {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(` AND trust_tier IN (%s)`, strings.Join(placeholders, ", "))
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list schools")
	}
	defer rows.Close()

	var schools []model.School
	for rows.Next() {
		school, err := scanSQLiteSchool(rows)
		if err != nil {
			return nil, err
		}
		schools = append(schools, *school)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list schools rows")
	}
	return schools, nil
}

func (s *SQLiteStore) GetSchool(ctx context.Context, id string) (*model.School, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = ?`, id)
	school, err := scanSQLiteSchool(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return school, nil
}

func (s *SQLiteStore) UpsertSchool(ctx context.Context, school *model.School) error {
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now

	programsJSON, fleetJSON, signalsJSON, err := marshalSchoolJSON(school)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal school")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schools (`+schoolColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			location = excluded.location,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			zip_code = excluded.zip_code,
			country = excluded.country,
			programs = excluded.programs,
			fleet = excluded.fleet,
			instructors_count = excluded.instructors_count,
			trust_tier = excluded.trust_tier,
			fsp_signals = excluded.fsp_signals,
			verified_at = excluded.verified_at,
			claimed_by = excluded.claimed_by,
			website = excluded.website,
			phone = excluded.phone,
			email = excluded.email,
			updated_at = excluded.updated_at`,
		school.ID, school.Name, rawLocationText(school), nilIfEmpty(school.Address),
		nilIfEmpty(school.City), nilIfEmpty(school.State), nilIfEmpty(school.ZipCode),
		nilIfEmpty(school.Country), string(programsJSON), jsonOrNil(fleetJSON), school.InstructorsCount,
		string(school.TrustTier), jsonOrNil(signalsJSON), school.VerifiedAt,
		nilIfEmpty(school.ClaimedBy), nilIfEmpty(school.Website), nilIfEmpty(school.Phone),
		nilIfEmpty(school.Email), school.CreatedAt, school.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert school %s", school.ID)
	}
	return nil
}

// SubscribeSchools is unsupported: SQLite has no change notification channel.
func (s *SQLiteStore) SubscribeSchools(ctx context.Context, fn func(schoolID string)) error {
	return eris.New("sqlite: subscriptions not supported")
}

func (s *SQLiteStore) InsertMatchSession(ctx context.Context, session *model.MatchSession) error {
	inputsJSON, err := json.Marshal(session.Inputs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal inputs")
	}
	rankingsJSON, err := json.Marshal(session.Rankings)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal rankings")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO match_sessions (id, user_id, inputs, ranked_schools, debrief, used_fallback, completed_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, nilIfEmpty(session.UserID), string(inputsJSON), string(rankingsJSON),
		session.Debrief, session.UsedFallback, session.CompletedAt, session.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert match session %s", session.ID)
	}
	return nil
}

func (s *SQLiteStore) ListMatchSessions(ctx context.Context, userID string, limit int) ([]model.MatchSession, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, user_id, inputs, ranked_schools, debrief, used_fallback, completed_at, created_at FROM match_sessions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list match sessions")
	}
	defer rows.Close()

	var sessions []model.MatchSession
	for rows.Next() {
		var (
			sess         model.MatchSession
			userID       sql.NullString
			inputsJSON   string
			rankingsJSON string
			completedAt  sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &userID, &inputsJSON, &rankingsJSON, &sess.Debrief, &sess.UsedFallback, &completedAt, &sess.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match session")
		}
		sess.UserID = userID.String
		if completedAt.Valid {
			sess.CompletedAt = completedAt.Time
		}
		if err := json.Unmarshal([]byte(inputsJSON), &sess.Inputs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal inputs")
		}
		if err := json.Unmarshal([]byte(rankingsJSON), &sess.Rankings); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal rankings")
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list match sessions rows")
	}
	return sessions, nil
}

// scannable abstracts sql.Row and sql.Rows for shared scanning.
type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteSchool(row scannable) (*model.School, error) {
	var (
		s         model.School
		location  sql.NullString
		address   sql.NullString
		city      sql.NullString
		state     sql.NullString
		zipCode   sql.NullString
		country   sql.NullString
		programs  sql.NullString
		fleet     sql.NullString
		trustTier sql.NullString
		signals   sql.NullString
		verified  sql.NullTime
		claimedBy sql.NullString
		website   sql.NullString
		phone     sql.NullString
		email     sql.NullString
	)

	err := row.Scan(&s.ID, &s.Name, &location, &address, &city, &state, &zipCode,
		&country, &programs, &fleet, &s.InstructorsCount, &trustTier, &signals,
		&verified, &claimedBy, &website, &phone, &email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan school")
	}

	if location.Valid {
		s.RawLocation = location.String
	}
	s.Address = address.String
	s.City = city.String
	s.State = state.String
	s.ZipCode = zipCode.String
	s.Country = country.String
	s.TrustTier = model.TrustTier(trustTier.String)
	s.ClaimedBy = claimedBy.String
	s.Website = website.String
	s.Phone = phone.String
	s.Email = email.String
	if verified.Valid {
		t := verified.Time
		s.VerifiedAt = &t
	}

	if programs.Valid && programs.String != "" {
		if err := json.Unmarshal([]byte(programs.String), &s.Programs); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal programs for %s", s.ID)
		}
	}
	if fleet.Valid && fleet.String != "" {
		if err := json.Unmarshal([]byte(fleet.String), &s.Fleet); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal fleet for %s", s.ID)
		}
	}
	if signals.Valid && signals.String != "" {
		if err := json.Unmarshal([]byte(signals.String), &s.FSPSignals); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal fsp signals for %s", s.ID)
		}
	}

	return &s, nil
}

func jsonOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
