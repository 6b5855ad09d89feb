package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/flysch/matchd/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	pgxPool *pgxpool.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const schoolColumns = `id, name, location, address, city, state, zip_code, country, programs, fleet, instructors_count, trust_tier, fsp_signals, verified_at, claimed_by, website, phone, email, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"list_schools":   `SELECT ` + schoolColumns + ` FROM schools ORDER BY name ASC`,
	"get_school":     `SELECT ` + schoolColumns + ` FROM schools WHERE id = $1`,
	"insert_session": `INSERT INTO match_sessions (id, user_id, inputs, ranked_schools, debrief, used_fallback, completed_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, pgxPool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name              TEXT NOT NULL,
	location          TEXT,
	address           TEXT,
	city              TEXT,
	state             TEXT,
	zip_code          TEXT,
	country           TEXT,
	programs          JSONB NOT NULL DEFAULT '[]',
	fleet             JSONB,
	instructors_count INTEGER NOT NULL DEFAULT 0,
	trust_tier        TEXT,
	fsp_signals       JSONB,
	verified_at       TIMESTAMPTZ,
	claimed_by        TEXT,
	website           TEXT,
	phone             TEXT,
	email             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_schools_name ON schools(name);
CREATE INDEX IF NOT EXISTS idx_schools_trust_tier ON schools(trust_tier);

CREATE TABLE IF NOT EXISTS match_sessions (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT,
	inputs         JSONB NOT NULL,
	ranked_schools JSONB NOT NULL DEFAULT '[]',
	debrief        TEXT NOT NULL DEFAULT '',
	used_fallback  BOOLEAN NOT NULL DEFAULT false,
	completed_at   TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_match_sessions_user_id ON match_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_match_sessions_created_at ON match_sessions(created_at DESC);

CREATE OR REPLACE FUNCTION notify_school_update() RETURNS trigger AS $fn$
BEGIN
	PERFORM pg_notify('school_updates', NEW.id);
	RETURN NEW;
END;
$fn$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS schools_notify_update ON schools;
CREATE TRIGGER schools_notify_update
	AFTER INSERT OR UPDATE ON schools
	FOR EACH ROW EXECUTE FUNCTION notify_school_update();
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListSchools(ctx context.Context, filter SchoolFilter) ([]model.School, error) {
	query := `SELECT ` + schoolColumns + ` FROM schools`
	var args []any

	where := ""
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = fmt.Sprintf(" WHERE name ILIKE $%d", len(args))
	}
	if len(filter.TrustTiers) > 0 {
		tiers := make([]string, len(filter.TrustTiers))
		for i, t := range filter.TrustTiers {
			tiers[i] = string(t)
		}
		args = append(args, tiers)
		if where == "" {
			where = fmt.Sprintf(" WHERE trust_tier = ANY($%d)", len(args))
		} else {
			where += fmt.Sprintf(" AND trust_tier = ANY($%d)", len(args))
		}
	}
	query += where + ` ORDER BY name ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list schools")
	}
	defer rows.Close()

	var schools []model.School
	for rows.Next() {
		school, err := scanPgSchool(rows)
		if err != nil {
			return nil, err
		}
		schools = append(schools, *school)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list schools rows")
	}
	return schools, nil
}

func (s *PostgresStore) GetSchool(ctx context.Context, id string) (*model.School, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id)
	school, err := scanPgSchool(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return school, nil
}

func (s *PostgresStore) UpsertSchool(ctx context.Context, school *model.School) error {
	now := time.Now().UTC()
	if school.CreatedAt.IsZero() {
		school.CreatedAt = now
	}
	school.UpdatedAt = now

	programsJSON, fleetJSON, signalsJSON, err := marshalSchoolJSON(school)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal school")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO schools (`+schoolColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip_code = EXCLUDED.zip_code,
			country = EXCLUDED.country,
			programs = EXCLUDED.programs,
			fleet = EXCLUDED.fleet,
			instructors_count = EXCLUDED.instructors_count,
			trust_tier = EXCLUDED.trust_tier,
			fsp_signals = EXCLUDED.fsp_signals,
			verified_at = EXCLUDED.verified_at,
			claimed_by = EXCLUDED.claimed_by,
			website = EXCLUDED.website,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			updated_at = EXCLUDED.updated_at`,
		school.ID, school.Name, rawLocationText(school), nilIfEmpty(school.Address),
		nilIfEmpty(school.City), nilIfEmpty(school.State), nilIfEmpty(school.ZipCode),
		nilIfEmpty(school.Country), programsJSON, fleetJSON, school.InstructorsCount,
		string(school.TrustTier), signalsJSON, school.VerifiedAt,
		nilIfEmpty(school.ClaimedBy), nilIfEmpty(school.Website), nilIfEmpty(school.Phone),
		nilIfEmpty(school.Email), school.CreatedAt, school.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert school %s", school.ID)
	}
	return nil
}

// SubscribeSchools listens for school change notifications until ctx ends.
func (s *PostgresStore) SubscribeSchools(ctx context.Context, fn func(schoolID string)) error {
	if s.pgxPool == nil {
		return eris.New("postgres: subscriptions require a live pool")
	}

	conn, err := s.pgxPool.Acquire(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: acquire listen conn")
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN school_updates"); err != nil {
		return eris.Wrap(err, "postgres: listen")
	}

	zap.L().Info("subscribed to school updates")
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return eris.Wrap(err, "postgres: wait for notification")
		}
		fn(n.Payload)
	}
}

func (s *PostgresStore) InsertMatchSession(ctx context.Context, session *model.MatchSession) error {
	inputsJSON, err := json.Marshal(session.Inputs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal inputs")
	}
	rankingsJSON, err := json.Marshal(session.Rankings)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal rankings")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO match_sessions (id, user_id, inputs, ranked_schools, debrief, used_fallback, completed_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, nilIfEmpty(session.UserID), inputsJSON, rankingsJSON,
		session.Debrief, session.UsedFallback, session.CompletedAt, session.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert match session %s", session.ID)
	}
	return nil
}

func (s *PostgresStore) ListMatchSessions(ctx context.Context, userID string, limit int) ([]model.MatchSession, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, user_id, inputs, ranked_schools, debrief, used_fallback, completed_at, created_at FROM match_sessions`
	var args []any
	if userID != "" {
		args = append(args, userID)
		query += ` WHERE user_id = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list match sessions")
	}
	defer rows.Close()

	var sessions []model.MatchSession
	for rows.Next() {
		var (
			sess         model.MatchSession
			userID       *string
			inputsJSON   []byte
			rankingsJSON []byte
			completedAt  *time.Time
		)
		if err := rows.Scan(&sess.ID, &userID, &inputsJSON, &rankingsJSON, &sess.Debrief, &sess.UsedFallback, &completedAt, &sess.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match session")
		}
		if userID != nil {
			sess.UserID = *userID
		}
		if completedAt != nil {
			sess.CompletedAt = *completedAt
		}
		if err := json.Unmarshal(inputsJSON, &sess.Inputs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal inputs")
		}
		if err := json.Unmarshal(rankingsJSON, &sess.Rankings); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal rankings")
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list match sessions rows")
	}
	return sessions, nil
}

// scanPgSchool reads one school row. Location stays raw; the schools service
// normalizes it on fetch.
func scanPgSchool(row pgx.Row) (*model.School, error) {
	var (
		s         model.School
		location  *string
		address   *string
		city      *string
		state     *string
		zipCode   *string
		country   *string
		programs  []byte
		fleet     []byte
		trustTier *string
		signals   []byte
		claimedBy *string
		website   *string
		phone     *string
		email     *string
	)

	err := row.Scan(&s.ID, &s.Name, &location, &address, &city, &state, &zipCode,
		&country, &programs, &fleet, &s.InstructorsCount, &trustTier, &signals,
		&s.VerifiedAt, &claimedBy, &website, &phone, &email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan school")
	}

	if location != nil {
		s.RawLocation = *location
	}
	s.Address = deref(address)
	s.City = deref(city)
	s.State = deref(state)
	s.ZipCode = deref(zipCode)
	s.Country = deref(country)
	s.ClaimedBy = deref(claimedBy)
	s.Website = deref(website)
	s.Phone = deref(phone)
	s.Email = deref(email)
	if trustTier != nil {
		s.TrustTier = model.TrustTier(*trustTier)
	}

	if len(programs) > 0 {
		if err := json.Unmarshal(programs, &s.Programs); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal programs for %s", s.ID)
		}
	}
	if len(fleet) > 0 {
		if err := json.Unmarshal(fleet, &s.Fleet); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal fleet for %s", s.ID)
		}
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &s.FSPSignals); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal fsp signals for %s", s.ID)
		}
	}

	return &s, nil
}

func marshalSchoolJSON(school *model.School) (programs, fleet, signals []byte, err error) {
	if school.Programs == nil {
		programs = []byte("[]")
	} else if programs, err = json.Marshal(school.Programs); err != nil {
		return nil, nil, nil, err
	}
	if school.Fleet != nil {
		if fleet, err = json.Marshal(school.Fleet); err != nil {
			return nil, nil, nil, err
		}
	}
	if school.FSPSignals != nil {
		if signals, err = json.Marshal(school.FSPSignals); err != nil {
			return nil, nil, nil, err
		}
	}
	return programs, fleet, signals, nil
}

// rawLocationText serializes whichever location representation the school
// carries into the TEXT column. Normalized points win over raw strings.
func rawLocationText(school *model.School) any {
	if school.Location != nil {
		return fmt.Sprintf("POINT(%g %g)", school.Location.Lng, school.Location.Lat)
	}
	if s, ok := school.RawLocation.(string); ok && s != "" {
		return s
	}
	return nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
