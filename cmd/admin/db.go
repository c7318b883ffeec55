package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

type commandRow struct {
	ID       string   `json:"id"`
	Tick     int64    `json:"tick"`
	At       string   `json:"at"`
	Remote   string   `json:"remote,omitempty"`
	Raw      string   `json:"raw"`
	Name     string   `json:"name"`
	Params   []string `json:"params"`
	Code     string   `json:"code,omitempty"`
	Error    string   `json:"error,omitempty"`
	Attempts int      `json:"attempts"`
	Calls    int      `json:"calls"`
}

type notificationRow struct {
	CommandID string  `json:"command_id"`
	Tick      int64   `json:"tick"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Severity  string  `json:"severity"`
	Focus     *[2]int `json:"focus,omitempty"`
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

type commandFilter struct {
	Name         string
	FailuresOnly bool
	SinceTick    uint64
	Limit        int
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	colonyID := fs.String("colony", "", "colony id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	name := fs.String("name", "", "command name filter (commands)")
	failures := fs.Bool("failures", false, "only commands with an error code (commands)")
	sinceTick := fs.Uint64("since_tick", 0, "only rows at or after this tick")
	severity := fs.String("severity", "", "severity filter (notifications)")
	_ = fs.Parse(args)

	q := "commands"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*colonyID) == "" {
			fmt.Fprintln(os.Stderr, "missing -colony or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "colonies", *colonyID, "index", "colony.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "commands":
		rows, err := queryCommands(db, commandFilter{Name: *name, FailuresOnly: *failures, SinceTick: *sinceTick, Limit: *limit})
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "notifications":
		rows, err := queryNotifications(db, *severity, *sinceTick, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, r := range rows {
			printJSON(r)
		}

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r catalogRow
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "summary":
		rows, err := db.Query(`SELECT name, COUNT(*), SUM(CASE WHEN code IS NULL THEN 0 ELSE 1 END) FROM commands GROUP BY name ORDER BY name`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name     string `json:"name"`
				Total    int64  `json:"total"`
				Failures int64  `json:"failures"`
			}
			if err := rows.Scan(&r.Name, &r.Total, &r.Failures); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(commands|notifications|catalogs|summary)")
		os.Exit(2)
	}
}

// queryCommands returns the newest matching commands first.
func queryCommands(db *sql.DB, f commandFilter) ([]commandRow, error) {
	where := []string{"tick >= ?"}
	args := []any{int64(f.SinceTick)}
	if f.Name != "" {
		where = append(where, "name = ?")
		args = append(args, strings.ToLower(f.Name))
	}
	if f.FailuresOnly {
		where = append(where, "code IS NOT NULL")
	}
	args = append(args, f.Limit)

	rows, err := db.Query(`SELECT id,tick,at,remote,raw,name,params_json,code,error,attempts,calls FROM commands WHERE `+
		strings.Join(where, " AND ")+` ORDER BY tick DESC, at DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []commandRow
	for rows.Next() {
		var (
			r                  commandRow
			remote, code, errS sql.NullString
			params             string
		)
		if err := rows.Scan(&r.ID, &r.Tick, &r.At, &remote, &r.Raw, &r.Name, &params, &code, &errS, &r.Attempts, &r.Calls); err != nil {
			return nil, err
		}
		r.Remote, r.Code, r.Error = remote.String, code.String, errS.String
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("command %s params: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryNotifications(db *sql.DB, severity string, sinceTick uint64, limit int) ([]notificationRow, error) {
	where := []string{"tick >= ?"}
	args := []any{int64(sinceTick)}
	if severity != "" {
		where = append(where, "severity = ?")
		args = append(args, strings.ToUpper(severity))
	}
	args = append(args, limit)

	rows, err := db.Query(`SELECT command_id,tick,title,body,severity,focus_x,focus_z FROM notifications WHERE `+
		strings.Join(where, " AND ")+` ORDER BY tick DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notificationRow
	for rows.Next() {
		var (
			r      notificationRow
			fx, fz sql.NullInt64
		)
		if err := rows.Scan(&r.CommandID, &r.Tick, &r.Title, &r.Body, &r.Severity, &fx, &fz); err != nil {
			return nil, err
		}
		if fx.Valid && fz.Valid {
			r.Focus = &[2]int{int(fx.Int64), int(fz.Int64)}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
