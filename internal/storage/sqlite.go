//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	logx "inkd/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	opCount    atomic.Uint64
	pruneEvery uint64
}

const sqliteMaxRecords = 5000

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, pruneEvery: 500}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendRefresh(ctx context.Context, r RefreshRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refresh_history(at, trigger_kind, action, plugin, fingerprint, painted, took_ms, err)
		 VALUES(?,?,?,?,?,?,?,?)`,
		r.At.Format(time.RFC3339Nano), r.Trigger, r.Action, nullStr(r.Plugin),
		nullStr(r.Fingerprint), boolInt(r.Painted), r.TookMS, nullStr(r.Error),
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_ = s.pruneOld(pctx)
		cancel()
	}
	return err
}

func (s *sqliteStore) Recent(ctx context.Context, n int) ([]RefreshRecord, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, trigger_kind, action, plugin, fingerprint, painted, took_ms, err
		 FROM refresh_history ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefreshRecord
	for rows.Next() {
		var (
			at                       string
			r                        RefreshRecord
			plugin, fingerprint, msg sql.NullString
			painted                  int
		)
		if err := rows.Scan(&at, &r.Trigger, &r.Action, &plugin, &fingerprint, &painted, &r.TookMS, &msg); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, at)
		r.Plugin = plugin.String
		r.Fingerprint = fingerprint.String
		r.Painted = painted != 0
		r.Error = msg.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqliteStore) pruneOld(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM refresh_history WHERE id NOT IN
		 (SELECT id FROM refresh_history ORDER BY id DESC LIMIT ?)`, sqliteMaxRecords)
	return err
}

func nullStr(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
