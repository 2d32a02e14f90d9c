package status

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/intersection/internal/monitoring"
	"github.com/banshee-data/intersection/internal/timeutil"
	"github.com/banshee-data/intersection/internal/zone"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps the latest record in a single-row SQLite table so that other
// tools on the device can query it alongside the JSON file.
type Store struct {
	*sql.DB
	path  string
	runID string
	clock timeutil.Clock
}

// OpenStore opens (or creates) the database at path and applies migrations.
func OpenStore(path, runID string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 500; PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	s := &Store{DB: db, path: path, runID: runID, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used for updated_at, for tests.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// MigrateUp runs all pending migrations up to the latest version.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied schema version and dirty flag.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(s.DB, &sqlitemigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Write upserts the single snapshot row.
func (s *Store) Write(ctx context.Context, rec Record) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO status_snapshot (id, preferred_street, street_a_count, street_b_count, run_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			preferred_street = excluded.preferred_street,
			street_a_count   = excluded.street_a_count,
			street_b_count   = excluded.street_b_count,
			run_id           = excluded.run_id,
			updated_at       = excluded.updated_at`,
		rec.PreferredStreet.String(), rec.StreetACount, rec.StreetBCount, s.runID, s.clock.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store status snapshot: %w", err)
	}
	return nil
}

// Snapshot is the stored record plus bookkeeping columns.
type Snapshot struct {
	Record
	RunID     string    `json:"run_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Latest returns the stored snapshot. ok is false when nothing has been
// written yet.
func (s *Store) Latest(ctx context.Context) (snap Snapshot, ok bool, err error) {
	var street string
	err = s.QueryRowContext(ctx, `
		SELECT preferred_street, street_a_count, street_b_count, run_id, updated_at
		FROM status_snapshot WHERE id = 1`,
	).Scan(&street, &snap.StreetACount, &snap.StreetBCount, &snap.RunID, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if snap.PreferredStreet, err = zone.ParseStreet(street); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

// AttachAdminRoutes mounts a tailsql console for the status database under
// /debug/tailsql/.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+s.path, s.DB, &tailsql.DBOptions{
		Label: "Intersection status DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}
