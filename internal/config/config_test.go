package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.ListenAddr != ":29090" {
		t.Errorf("ListenAddr = %q, want default :29090", cfg.Server.ListenAddr)
	}
	if cfg.Collection.Interval.Duration != 15*time.Second {
		t.Errorf("Interval = %v, want 15s default", cfg.Collection.Interval.Duration)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
java:
  home: /opt/jdk
  display_full_path: true
collection:
  interval: 30s
  sample_timeout: 2s
system_processes:
  - nginx
  - sshd
`)
	if err := os.WriteFile(path, data, 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Java.Home != "/opt/jdk" {
		t.Errorf("Java.Home = %q", cfg.Java.Home)
	}
	if !cfg.Java.DisplayFullPath {
		t.Error("DisplayFullPath = false, want true")
	}
	if cfg.Collection.Interval.Duration != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Collection.Interval.Duration)
	}
	if cfg.Collection.SampleTimeout.Duration != 2*time.Second {
		t.Errorf("SampleTimeout = %v, want 2s", cfg.Collection.SampleTimeout.Duration)
	}
	if len(cfg.SystemProcesses) != 2 || cfg.SystemProcesses[0] != "nginx" {
		t.Errorf("SystemProcesses = %v", cfg.SystemProcesses)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("collection:\n  interval: soon\n"), 0640); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("java:\n  home: /file/jdk\n"), 0640); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JVM_EXPORTER_JAVA_HOME", "/env/jdk")

	cfg, err := LoadLayered(path, CLIOverrides{JavaHome: "/cli/jdk", ListenAddr: ":1234"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Java.Home != "/cli/jdk" {
		t.Errorf("Java.Home = %q, want CLI override", cfg.Java.Home)
	}
	if cfg.Server.ListenAddr != ":1234" {
		t.Errorf("ListenAddr = %q, want CLI override", cfg.Server.ListenAddr)
	}
}

func TestLoadLayered_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("java:\n  home: /file/jdk\nsystem_processes: [nginx]\n"), 0640); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JVM_EXPORTER_JAVA_HOME", "/env/jdk")
	t.Setenv("JVM_EXPORTER_SYSTEM_PROCESSES", "sshd, cron")

	cfg, err := LoadLayered(path, CLIOverrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Java.Home != "/env/jdk" {
		t.Errorf("Java.Home = %q, want env override", cfg.Java.Home)
	}
	if len(cfg.SystemProcesses) != 2 || cfg.SystemProcesses[0] != "sshd" || cfg.SystemProcesses[1] != "cron" {
		t.Errorf("SystemProcesses = %v, want env override", cfg.SystemProcesses)
	}
}

func TestLoadLayered_RemoteMerge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(RemoteConfig{
			JavaHome:        "/remote/jdk",
			SystemProcesses: []string{"nginx", "redis-server"},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "configuration_service_url: " + srv.URL + "\nsystem_processes: [nginx, sshd]\n"
	if err := os.WriteFile(path, []byte(data), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(path, CLIOverrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Java.Home != "/remote/jdk" {
		t.Errorf("Java.Home = %q, want remote override", cfg.Java.Home)
	}
	// Local set plus remote additions, no duplicates.
	want := []string{"nginx", "sshd", "redis-server"}
	if len(cfg.SystemProcesses) != len(want) {
		t.Fatalf("SystemProcesses = %v, want %v", cfg.SystemProcesses, want)
	}
	for i, name := range want {
		if cfg.SystemProcesses[i] != name {
			t.Errorf("SystemProcesses[%d] = %q, want %q", i, cfg.SystemProcesses[i], name)
		}
	}
}

func TestLoadLayered_RemoteUnreachableIsNonFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "configuration_service_url: http://127.0.0.1:1/config\njava:\n  home: /file/jdk\n"
	if err := os.WriteFile(path, []byte(data), 0640); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadLayered(path, CLIOverrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Java.Home != "/file/jdk" {
		t.Errorf("Java.Home = %q, want local value preserved", cfg.Java.Home)
	}
}

func TestMergeRemote_EmptyFieldsLeaveLocal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	MergeRemote(cfg, &RemoteConfig{})
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want local value", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"no listen addr", func(c *Config) { c.Server.ListenAddr = "" }, true},
		{"zero interval", func(c *Config) { c.Collection.Interval = Duration{} }, true},
		{"zero timeout", func(c *Config) { c.Collection.SampleTimeout = Duration{} }, true},
		{"zero concurrency", func(c *Config) { c.Collection.MaxConcurrentSamples = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestProvider_ReplaceValidates(t *testing.T) {
	p := NewProvider(DefaultConfig())

	bad := p.Current()
	bad.Collection.MaxConcurrentSamples = 0
	if err := p.Replace(bad); err == nil {
		t.Error("Replace accepted invalid config")
	}

	good := p.Current()
	good.SystemProcesses = []string{"nginx"}
	if err := p.Replace(good); err != nil {
		t.Fatal(err)
	}
	if got := p.Current().SystemProcesses; len(got) != 1 || got[0] != "nginx" {
		t.Errorf("SystemProcesses = %v after Replace", got)
	}
}
