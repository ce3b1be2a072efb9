package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nrouting: geo\nstore: sqlite\nstore_path: /tmp/w.db\nmax_actors: 7\ncors_origins: [\"https://a\", \"https://b\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.Routing != "geo" || cfg.Store != "sqlite" || cfg.StorePath != "/tmp/w.db" || cfg.MaxActors != 7 || len(cfg.CORSOrigins) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","store":"purekv","store_addr":"localhost:6666","weights_key":"w.bin","max_wait_ms":250}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Store != "purekv" || cfg.StoreAddr != "localhost:6666" || cfg.WeightsKey != "w.bin" || cfg.MaxWait() != 250*time.Millisecond {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nassets_dir=\"/srv/www\"\nfixed_identity=\"solo\"\nmax_queue_depth=4\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.AssetsDir != "/srv/www" || cfg.FixedIdentity != "solo" || cfg.MaxQueueDepth != 4 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	d := t.TempDir()
	cases := map[string]string{
		"cfg.txt":  "not supported",
		"bad.yaml": "addr: :8080\n: broken\n",
		"bad.json": `{ "addr": ":8080", "store": }`,
		"bad.toml": "addr=:8080\nstore\n",
	}
	for name, body := range cases {
		if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDefaultsValidate(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if c.Routing != "fixed" || c.FixedIdentity != "global" || c.GeoHeader != "CF-IPContinent" || c.StorePath != DefaultStorePath {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	sq := Config{Store: "sqlite"}
	sq.ApplyDefaults()
	if sq.StorePath != "./weights.db" {
		t.Fatalf("sqlite default path: %q", sq.StorePath)
	}
}

func TestValidateRejects(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Routing = "random" },
		func(c *Config) { c.Store = "s3" },
		func(c *Config) { c.Store = "purekv"; c.StoreAddr = "" },
		func(c *Config) { c.LogFormat = "xml" },
		func(c *Config) { c.WeightsKey = " " },
		func(c *Config) { c.MaxActors = -1 },
	}
	for i, mutate := range bad {
		c := Default()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error for %+v", i, c)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MNISTD_ADDR":         ":9000",
		"MNISTD_ROUTING":      "geo",
		"MNISTD_MAX_ACTORS":   "3",
		"MNISTD_CORS_ORIGINS": " https://a ,, https://b ",
	}
	c := Default()
	if err := c.ApplyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("env: %v", err)
	}
	if c.Addr != ":9000" || c.Routing != "geo" || c.MaxActors != 3 || !c.CORSEnabled || len(c.CORSOrigins) != 2 {
		t.Fatalf("unexpected cfg: %+v", c)
	}

	env = map[string]string{"MNISTD_MAX_WAIT_MS": "soon"}
	if err := c.ApplyEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected error for non-numeric value")
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestStoreConfig(t *testing.T) {
	c := Config{Store: "purekv", StoreAddr: "h:1", StoreBucket: "b", StoreTimeoutSeconds: 2}
	sc := c.StoreConfig()
	if sc.Driver != "purekv" || sc.Address != "h:1" || sc.Bucket != "b" || sc.TimeoutSeconds != 2 {
		t.Fatalf("unexpected store config %+v", sc)
	}
}
