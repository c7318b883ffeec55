package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"colonylink.ai/internal/protocol"
)

func TestCommandLogger_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	l := NewCommandLogger(dir)
	entries := []protocol.CommandEntry{
		{ID: "a", Tick: 1, Raw: "boom", Name: "boom", Params: []string{}, Calls: []string{"SpawnExplosion", "Notify"}},
		{ID: "b", Tick: 2, Raw: "dance", Name: "dance", Params: []string{}, Code: protocol.CodeUnknown, Error: "unknown command"},
	}
	for _, e := range entries {
		if err := l.WriteCommand(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := Files(dir)
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var got []protocol.CommandEntry
	if err := ReadCommands(files[0], func(e protocol.CommandEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("read closed file: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || len(got[0].Calls) != 2 || got[1].Code != protocol.CodeUnknown {
		t.Fatalf("got=%+v", got)
	}
}

func TestJSONLZstdWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(filepath.Join(dir, "commands"), "commands")
	now := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(protocol.CommandEntry{ID: "1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(protocol.CommandEntry{ID: "2"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	want := []string{
		filepath.Join(dir, "commands", "commands-2024-05-01-10.jsonl.zst"),
		filepath.Join(dir, "commands", "commands-2024-05-01-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files=%v want=%v", files, want)
	}
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil || st.Size() == 0 {
			t.Fatalf("stat %s: %v", f, err)
		}
	}
}

func TestReadCommands_MissingFile(t *testing.T) {
	if err := ReadCommands(filepath.Join(t.TempDir(), "nope.jsonl.zst"), func(protocol.CommandEntry) error { return nil }); err == nil {
		t.Fatalf("expected error")
	}
}
