package export

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/KaramelBytes/batcov/internal/prevalence"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS prevalence_runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		min_sampled INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prevalence_rows (
		run_id TEXT NOT NULL,
		genus TEXT NOT NULL,
		group_by TEXT NOT NULL,
		row_rank INTEGER NOT NULL,
		group_value TEXT NOT NULL,
		virus_genus TEXT NOT NULL,
		positive INTEGER NOT NULL,
		sampled INTEGER NOT NULL,
		proportion DOUBLE PRECISION NOT NULL,
		prop_error DOUBLE PRECISION NOT NULL
	)`,
}

type runRecord struct {
	RunID      string    `db:"run_id"`
	Source     string    `db:"source"`
	MinSampled int       `db:"min_sampled"`
	CreatedAt  time.Time `db:"created_at"`
}

type rowRecord struct {
	RunID      string  `db:"run_id"`
	Genus      string  `db:"genus"`
	GroupBy    string  `db:"group_by"`
	Rank       int     `db:"row_rank"`
	GroupValue string  `db:"group_value"`
	VirusGenus string  `db:"virus_genus"`
	Positive   int     `db:"positive"`
	Sampled    int     `db:"sampled"`
	Proportion float64 `db:"proportion"`
	PropError  float64 `db:"prop_error"`
}

// OpenDB connects to a postgres:// URL or, for anything else, a sqlite file
// (an optional sqlite:// prefix is stripped).
func OpenDB(dsn string) (*sqlx.DB, error) {
	driver, source := "sqlite3", strings.TrimPrefix(dsn, "sqlite://")
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, source = "postgres", dsn
	}
	db, err := sqlx.Connect(driver, source)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates the export tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func writeDatabase(ctx context.Context, dsn string, m *Manifest, tables []*prevalence.Table) (int, error) {
	db, err := OpenDB(dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	if err := Migrate(ctx, db); err != nil {
		return 0, err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO prevalence_runs (run_id, source, min_sampled, created_at)
		 VALUES (:run_id, :source, :min_sampled, :created_at)`,
		runRecord{RunID: m.RunID, Source: m.Source, MinSampled: m.MinSampled, CreatedAt: m.CreatedAt}); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	n := 0
	for _, tbl := range tables {
		for i, r := range tbl.Rows {
			rec := rowRecord{
				RunID:      m.RunID,
				Genus:      tbl.Query.Genus.String(),
				GroupBy:    tbl.Query.GroupBy.String(),
				Rank:       i + 1,
				GroupValue: r.Group,
				VirusGenus: r.VirusGenus,
				Positive:   r.Positive,
				Sampled:    r.Sampled,
				Proportion: r.Proportion,
				PropError:  r.PropError,
			}
			if _, err := tx.NamedExecContext(ctx,
				`INSERT INTO prevalence_rows (run_id, genus, group_by, row_rank, group_value, virus_genus, positive, sampled, proportion, prop_error)
				 VALUES (:run_id, :genus, :group_by, :row_rank, :group_value, :virus_genus, :positive, :sampled, :proportion, :prop_error)`,
				rec); err != nil {
				return 0, fmt.Errorf("insert row: %w", err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// redactDSN hides a password before the DSN is written to a manifest.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
