package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestPredict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "features:\n  - name: charts\n    source: {type: static}\n  - name: auth\n    source: {type: static}\npredictions:\n  dashboard: [charts, auth]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := execute(t, "predict", "dashboard", "-c", path)
	if out != "charts\nauth\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPreload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "features:\n  - name: charts\n    source: {type: static, conf: {data: bars}}\npredictions:\n  dashboard: [charts]\nscheduler:\n  idle: delay\n  fallback_delay_ms: 1\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := execute(t, "preload", "dashboard", "-c", path)
	if !strings.Contains(out, "charts") || !strings.Contains(out, "loaded") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	lines := `{"kind":"feature_loaded","feature":"charts","duration":20000000,"time":"2024-05-01T10:00:00Z"}
{"kind":"feature_load_failed","feature":"charts","error":"boom","time":"2024-05-01T10:00:01Z"}
`
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := execute(t, "report", "--journal", path)
	if !strings.Contains(out, "charts") || !strings.Contains(out, "20ms") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	line := `{"kind":"feature_loaded","feature":"charts","duration":20000000,"time":"2024-05-01T10:00:00Z"}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := execute(t, "report", "--journal", path, "--format", "csv")
	if !strings.Contains(out, "charts,1,0,0,0,20,20,20,0.000") {
		t.Fatalf("unexpected output %q", out)
	}
	reportFormat = "table"
}
