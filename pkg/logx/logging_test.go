package logx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"  Info  ", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in, zerolog.InfoLevel); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPruneOldFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	days := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"}
	for _, d := range days {
		if err := os.WriteFile(filepath.Join(dir, filePrefix+d+fileExt), []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	// Unrelated files must survive.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := pruneOldFiles(dir, 2); err != nil {
		t.Fatalf("pruneOldFiles error: %v", err)
	}

	for _, d := range days[:3] {
		if _, err := os.Stat(filepath.Join(dir, filePrefix+d+fileExt)); !os.IsNotExist(err) {
			t.Fatalf("old file %s not pruned", d)
		}
	}
	for _, d := range days[3:] {
		if _, err := os.Stat(filepath.Join(dir, filePrefix+d+fileExt)); err != nil {
			t.Fatalf("recent file %s pruned: %v", d, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestPruneOldFilesNoopWhenUnderLimit(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	name := filepath.Join(dir, filePrefix+"2024-06-01"+fileExt)
	if err := os.WriteFile(name, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := pruneOldFiles(dir, 5); err != nil {
		t.Fatalf("pruneOldFiles error: %v", err)
	}
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("file removed under limit: %v", err)
	}
	if err := pruneOldFiles(dir, 0); err != nil {
		t.Fatalf("pruneOldFiles(max=0) error: %v", err)
	}
	if _, err := os.Stat(name); err != nil {
		t.Fatalf("file removed with rotation disabled: %v", err)
	}
}

func TestServiceWritesDayFile(t *testing.T) {
	dir := t.TempDir()
	svc, log := New(Config{Level: "debug", Console: false, Directory: dir, Rotate: true, MaxFiles: 3})
	defer svc.Close()

	log.Info("hello", String("k", "v"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("files in log dir = %d, want 1", len(entries))
	}
	b, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("log file empty after Info")
	}
}

func TestLoggerWithFields(t *testing.T) {
	t.Parallel()
	base := Nop().With(String("comp", "test"))
	derived := base.With(Int("n", 1))
	// With must not mutate the parent.
	if len(base.fields) != 1 {
		t.Fatalf("parent fields = %d, want 1", len(base.fields))
	}
	if len(derived.fields) != 2 {
		t.Fatalf("derived fields = %d, want 2", len(derived.fields))
	}
	// Writing through a nop logger must not panic.
	derived.Error("boom", Err(os.ErrNotExist))
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()
	var l Logger
	if !l.IsZero() {
		t.Fatal("zero Logger not detected")
	}
	l.Info("writes nowhere")
	l.With(String("k", "v")).Warn("still nowhere")
}
