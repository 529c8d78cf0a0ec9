package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ursineenterprises/koom/internal/db"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := "variant: dev\n" +
		"log_file: " + filepath.Join(dir, "koom.log") + "\n" +
		"storage:\n  path: " + filepath.Join(dir, "koom.sqlite") + "\n" +
		"assets:\n  dir: " + filepath.Join(dir, "audio") + "\n"
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAddListExportDelete(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "add", "--time", "7:05", "--day", "Friday", "--track", "Pete", "--recurring")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Friday 07:05 (Pete)") {
		t.Errorf("add output = %q", out)
	}

	out, err = run(t, "--config", cfg, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "07:05") || !strings.Contains(out, "Pete") || !strings.Contains(out, "NEXT") {
		t.Errorf("list output = %q", out)
	}

	backupPath := filepath.Join(t.TempDir(), "alarms.yaml")
	if _, err := run(t, "--config", cfg, "export", backupPath); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !strings.Contains(string(data), "day: Friday") {
		t.Errorf("backup = %q", data)
	}

	if _, err := run(t, "--config", cfg, "delete", "--all"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, _ = run(t, "--config", cfg, "list")
	if !strings.Contains(out, "No alarms.") {
		t.Errorf("list after delete = %q", out)
	}

	out, err = run(t, "--config", cfg, "import", backupPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 1 alarm(s).") {
		t.Errorf("import output = %q", out)
	}
}

func TestPrintAlarmsShowsNextOccurrence(t *testing.T) {
	var out bytes.Buffer
	monday := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	printAlarms(&out, []db.AlarmRecord{
		{ID: "on", Time: "06:30", Day: "Wednesday", Enabled: true, TrackIDs: []string{"Pete"}},
		{ID: "off", Time: "06:30", Day: "Wednesday", TrackIDs: []string{"Zizek"}},
	}, monday)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	if !strings.HasSuffix(lines[1], "Wed Oct 21 06:30") {
		t.Errorf("enabled row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "-") {
		t.Errorf("disabled row = %q", lines[2])
	}
}

func TestAddRejectsInvalidAlarm(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "add", "--time", "25:00", "--day", "Monday", "--track", "Pete")
	if err == nil || !strings.Contains(err.Error(), "time") {
		t.Errorf("err = %v, want a time problem", err)
	}
}

func TestDeleteNeedsIDOrAll(t *testing.T) {
	cfg := writeConfig(t)

	if _, err := run(t, "--config", cfg, "delete"); err == nil {
		t.Error("delete with no id should fail")
	}
	if _, err := run(t, "--config", cfg, "delete", "missing"); err == nil {
		t.Error("deleting a missing alarm should fail")
	}
}

func TestTracksAndVersion(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "--config", cfg, "tracks", "--collection", "music")
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	if !strings.Contains(out, "MUSIC") || strings.Contains(out, "SPEECH") {
		t.Errorf("tracks output = %q", out)
	}

	out, err = run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}
}
