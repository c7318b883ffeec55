package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"colonylink.ai/internal/protocol"
	"colonylink.ai/internal/sim/catalogs"
	"colonylink.ai/internal/sim/tuning"
)

// SQLiteIndex is a secondary, queryable index of the command log. Writes are queued
// and applied by a single writer goroutine; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan protocol.CommandEntry
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTotal    atomic.Uint64
	writtenTotal atomic.Uint64
}

// QueueStats reports the writer queue. Dropped entries never reached the index.
type QueueStats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
	WrittenTotal  uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan protocol.CommandEntry, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			tick INTEGER NOT NULL,
			at TEXT NOT NULL,
			remote TEXT,
			raw TEXT NOT NULL,
			name TEXT NOT NULL,
			params_json TEXT NOT NULL,
			code TEXT,
			error TEXT,
			attempts INTEGER NOT NULL,
			calls INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_tick ON commands(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_name_tick ON commands(name, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_code ON commands(code);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			command_id TEXT PRIMARY KEY REFERENCES commands(id),
			tick INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			severity TEXT NOT NULL,
			focus_x INTEGER,
			focus_z INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_severity_tick ON notifications(severity, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteCommand queues e without blocking. When the queue is full the entry is dropped
// and counted.
func (s *SQLiteIndex) WriteCommand(e protocol.CommandEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropTotal:     s.dropTotal.Load(),
		WrittenTotal:  s.writtenTotal.Load(),
	}
}

// UpsertCatalogs records the catalogs and tuning the server started with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range catalogRows(configDir, cats, tune) {
		if _, err := stmt.Exec(r.name, r.digest, string(r.data), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type catalogRow struct {
	name   string
	digest string
	data   []byte
}

// catalogRows prefers the raw config files; tuning is stored as the values applied.
func catalogRows(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) []catalogRow {
	digests := map[string]string{
		"factions":   cats.Factions.Digest,
		"strategies": cats.Strategies.Digest,
		"weather":    cats.Weather.Digest,
		"items":      cats.Items.Digest,
		"incidents":  cats.Incidents.Digest,
	}
	names := make([]string, 0, len(digests))
	for name := range digests {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []catalogRow
	for _, name := range names {
		if configDir == "" || digests[name] == "" {
			continue
		}
		b, err := os.ReadFile(filepath.Join(configDir, name+".json"))
		if err != nil || len(b) == 0 {
			continue
		}
		rows = append(rows, catalogRow{name: name, digest: digests[name], data: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, catalogRow{name: "tuning", digest: hex.EncodeToString(sum[:]), data: b})
	}
	return rows
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertCommand, _ := s.db.Prepare(`INSERT OR REPLACE INTO commands(id,tick,at,remote,raw,name,params_json,code,error,attempts,calls,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertNotification, _ := s.db.Prepare(`INSERT OR REPLACE INTO notifications(command_id,tick,title,body,severity,focus_x,focus_z) VALUES(?,?,?,?,?,?,?)`)
	defer func() {
		if insertCommand != nil {
			_ = insertCommand.Close()
		}
		if insertNotification != nil {
			_ = insertNotification.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		pending       uint64
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err == nil {
			s.writtenTotal.Add(pending)
		}
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		pending = 0
		lastCommit = time.Now()
	}

	for {
		var (
			e  protocol.CommandEntry
			ok bool
		)
		// An idle queue still commits within commitMaxWait.
		select {
		case e, ok = <-s.ch:
		case <-time.After(commitMaxWait):
			commit()
			continue
		}
		if !ok {
			break
		}
		begin()
		if tx == nil || insertCommand == nil {
			continue
		}
		params, _ := json.Marshal(e.Params)
		raw, _ := json.Marshal(e)
		if _, err := tx.Stmt(insertCommand).Exec(
			e.ID,
			int64(e.Tick),
			e.At,
			nullString(e.Remote),
			e.Raw,
			e.Name,
			string(params),
			nullString(e.Code),
			nullString(e.Error),
			e.Attempts,
			len(e.Calls),
			string(raw),
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if n := e.Notification; n != nil && insertNotification != nil {
			var fx, fz sql.NullInt64
			if n.Focus != nil {
				fx = sql.NullInt64{Int64: int64(n.Focus[0]), Valid: true}
				fz = sql.NullInt64{Int64: int64(n.Focus[1]), Valid: true}
			}
			if _, err := tx.Stmt(insertNotification).Exec(e.ID, int64(e.Tick), n.Title, n.Body, n.Severity, fx, fz); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		pending++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
