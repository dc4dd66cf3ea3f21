package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilianp07/lazyload/core/source"
	_ "github.com/kilianp07/lazyload/infra/source"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sample = `features:
  - name: auth
    source:
      type: static
      conf:
        data: "login"
  - name: charts
    depends_on: [auth]
    fallback: "charts unavailable"
    source:
      type: http
      conf:
        base_url: "https://cdn.example.com/chunks"
        extension: ".js"
        timeout: "5s"
predictions:
  dashboard: [charts]
  settings: [auth]
scheduler:
  idle: delay
  fallback_delay_ms: 20
  load_timeout_ms: 3000
http:
  address: ":8080"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "web"
metrics:
  sinks:
    - type: "nop"
journal:
  path: "events.jsonl"
tracing:
  enabled: true
`

//nolint:gocyclo
func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"features", len(cfg.Features), 2},
		{"source.type", cfg.Features[1].Source.Type, "http"},
		{"depends_on", strings.Join(cfg.Features[1].DependsOn, ","), "auth"},
		{"fallback", cfg.Features[1].Fallback, "charts unavailable"},
		{"predictions", strings.Join(cfg.Predictions["dashboard"], ","), "charts"},
		{"scheduler.idle", cfg.Scheduler.Idle, IdleDelay},
		{"scheduler.fallback", cfg.Scheduler.FallbackDelay().String(), "20ms"},
		{"scheduler.max_wait default", cfg.Scheduler.MaxIdleWaitMS, 2000},
		{"scheduler.timeout", cfg.Scheduler.LoadTimeout().String(), "3s"},
		{"http.address", cfg.HTTP.Address, ":8080"},
		{"http.load_wait default", cfg.HTTP.LoadWaitMS, 10000},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.route_topic default", cfg.MQTT.RouteTopic, "lazyload/routes"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"journal.max_backups default", cfg.Journal.MaxBackups, 3},
		{"tracing", cfg.Tracing.Enabled, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("K_SCHEDULER__IDLE", "activity")
	t.Setenv("K_HTTP__TOKEN", "secret")
	t.Setenv("K_SCHEDULER__FALLBACK_DELAY_MS", "75")
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduler.Idle != IdleActivity {
		t.Errorf("expected env override, got %s", cfg.Scheduler.Idle)
	}
	if cfg.HTTP.Token != "secret" {
		t.Errorf("expected token from env, got %q", cfg.HTTP.Token)
	}
	if cfg.Scheduler.FallbackDelayMS != 75 {
		t.Errorf("expected nested int override, got %d", cfg.Scheduler.FallbackDelayMS)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"features":[{"name":"auth","source":{"type":"static","conf":{"data":"x"}}}]}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduler.Idle != IdleActivity {
		t.Errorf("expected default idle mode, got %s", cfg.Scheduler.Idle)
	}
	if cfg.MQTT.RouteTopic != "" {
		t.Errorf("mqtt defaults must not apply without a broker")
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unsupported":   "",
		"unknown dep":   "features:\n  - name: a\n    depends_on: [b]\n    source: {type: static}\n",
		"duplicate":     "features:\n  - name: a\n    source: {type: static}\n  - name: a\n    source: {type: static}\n",
		"no source":     "features:\n  - name: a\n",
		"unknown pred":  "features:\n  - name: a\n    source: {type: static}\npredictions:\n  home: [ghost]\n",
		"bad idle mode": "scheduler:\n  idle: sometimes\n",
	}
	for name, data := range cases {
		file := "config.yaml"
		if name == "unsupported" {
			file = "config.toml"
		}
		if _, err := Load(writeConfig(t, file, data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestPredictionsFileMerged(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "routes.yaml"), []byte("home: [auth]\nsettings: [auth]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := "features:\n  - name: auth\n    source: {type: static}\n  - name: forms\n    source: {type: static}\npredictions_file: routes.yaml\npredictions:\n  settings: [forms]\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	table, err := cfg.PredictionTable()
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if got := strings.Join(table.Predict("home"), ","); got != "auth" {
		t.Errorf("home: %s", got)
	}
	if got := strings.Join(table.Predict("settings"), ","); got != "forms" {
		t.Errorf("inline entry should win, got %s", got)
	}
}

func TestDescriptors(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sample))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	ds, err := cfg.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	if len(ds) != 2 || !ds[1].HasFallback || ds[1].DependsOn[0] != "auth" {
		t.Fatalf("unexpected descriptors %+v", ds)
	}
	m, err := ds[0].Load(context.Background())
	if err != nil {
		t.Fatalf("load auth: %v", err)
	}
	art, ok := m.(*source.Artifact)
	if !ok || string(art.Data) != "login" {
		t.Fatalf("unexpected module %#v", m)
	}
}
