// Package store is the persistence adapter over the Postgres-backed
// directory. Inserts tolerate duplicate-key conflicts as soft skips,
// surfaced to callers as a typed signal rather than message sniffing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"oasara-facility-enrichment/internal/models"
)

// ErrConflict marks an insert rejected by a uniqueness constraint. Callers
// treat it as an expected skip, not a failure.
var ErrConflict = errors.New("duplicate record")

// IsConflict reports whether err is a uniqueness-constraint rejection.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Store wraps the shared, long-lived database client. Each insert and each
// counter update is an independent statement; there is no transactional
// grouping across a facility run.
type Store struct {
	db  *sql.DB
	q   *goqu.Database
	log zerolog.Logger
}

// New wraps an open database handle.
func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		q:   goqu.New("postgres", db),
		log: log,
	}
}

// Connect opens and pings a Postgres connection.
func Connect(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return New(db, log), nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SelectFacilities returns the facilities a run should process: website
// non-null, optionally narrowed to one id, otherwise capped by the limit.
func (s *Store) SelectFacilities(ctx context.Context, sel models.Selection) ([]models.Facility, error) {
	ds := s.q.From("facilities").
		Select("id", "name", "website", "country", "city").
		Where(goqu.C("website").IsNotNull())

	if sel.FacilityID != "" {
		ds = ds.Where(goqu.Ex{"id": sel.FacilityID})
	} else if !sel.All && sel.Limit > 0 {
		ds = ds.Limit(uint(sel.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("store: build facility query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: select facilities: %w", err)
	}
	defer rows.Close()

	var out []models.Facility
	for rows.Next() {
		var f models.Facility
		var country, city sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &f.Website, &country, &city); err != nil {
			return nil, fmt.Errorf("store: scan facility: %w", err)
		}
		f.Country = country.String
		f.City = city.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) insert(ctx context.Context, table string, record goqu.Record) error {
	query, args, err := s.q.Insert(table).Rows(record).ToSQL()
	if err != nil {
		return fmt.Errorf("store: build %s insert: %w", table, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return classify(table, err)
	}
	return nil
}

// classify converts driver errors into the pipeline's error vocabulary.
// The pq error code is authoritative; the message fallback keeps parity
// with stores that only surface text.
func classify(table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("store: %s: %w", table, ErrConflict)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique") {
		return fmt.Errorf("store: %s: %w", table, ErrConflict)
	}
	return fmt.Errorf("store: insert into %s: %w", table, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}
