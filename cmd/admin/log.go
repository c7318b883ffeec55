package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	persistlog "colonylink.ai/internal/persistence/log"
	"colonylink.ai/internal/protocol"
)

// logCmd reads the command log directly, without the index.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	colonyID := fs.String("colony", "", "colony id (required)")
	name := fs.String("name", "", "command name filter")
	failures := fs.Bool("failures", false, "only commands with an error code")
	sinceTick := fs.Uint64("since_tick", 0, "only entries at or after this tick")
	_ = fs.Parse(args)

	if strings.TrimSpace(*colonyID) == "" {
		fmt.Fprintln(os.Stderr, "missing -colony")
		os.Exit(2)
	}
	colonyDir := filepath.Join(*dataDir, "colonies", *colonyID)

	mode := "files"
	if fs.NArg() > 0 {
		mode = strings.TrimSpace(fs.Arg(0))
	}

	files, err := persistlog.Files(colonyDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}

	switch mode {
	case "files":
		for _, line := range describeFiles(files, time.Now()) {
			fmt.Println(line)
		}

	case "read", "summary":
		f := logFilter{Name: strings.ToLower(*name), FailuresOnly: *failures, SinceTick: *sinceTick}
		var (
			total, shown int
			byName       = map[string]int{}
		)
		for _, path := range files {
			err := persistlog.ReadCommands(path, func(e protocol.CommandEntry) error {
				total++
				if !f.match(e) {
					return nil
				}
				shown++
				byName[e.Name]++
				if mode == "read" {
					printJSON(e)
				}
				return nil
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, filepath.Base(path)+":", err)
				os.Exit(1)
			}
		}
		if mode == "summary" {
			for _, n := range sortedNames(byName) {
				fmt.Printf("%-12s %s\n", displayName(n), humanize.Comma(int64(byName[n])))
			}
			fmt.Printf("matched %s of %s entries in %d files\n", humanize.Comma(int64(shown)), humanize.Comma(int64(total)), len(files))
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown mode:", mode, "(files|read|summary)")
		os.Exit(2)
	}
}

type logFilter struct {
	Name         string
	FailuresOnly bool
	SinceTick    uint64
}

func (f logFilter) match(e protocol.CommandEntry) bool {
	if e.Tick < f.SinceTick {
		return false
	}
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if f.FailuresOnly && e.OK() {
		return false
	}
	return true
}

func describeFiles(paths []string, now time.Time) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			out = append(out, fmt.Sprintf("%s  (%v)", filepath.Base(p), err))
			continue
		}
		out = append(out, fmt.Sprintf("%s  %s  %s", filepath.Base(p), humanize.Bytes(uint64(st.Size())), humanize.RelTime(st.ModTime(), now, "ago", "from now")))
	}
	return out
}

func displayName(n string) string {
	if n == "" {
		return "(empty)"
	}
	return n
}

func sortedNames(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
