package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DB_DRIVER", "AI_TIMEOUT", "PERIOD_DAYS", "REDIS_DB", "ALLOW_ENTRY_REPLACE", "TIMEZONE"} {
		t.Setenv(k, "")
	}
	cfg := New(filepath.Join(t.TempDir(), "missing.env"))

	if cfg.HTTPAddr != ":8080" || cfg.DBDriver != "sqlite" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AITimeout != 8*time.Second || cfg.PeriodDays != 7 || cfg.RedisDB != 0 || cfg.AllowReplace {
		t.Errorf("typed defaults = %v %d %d %v", cfg.AITimeout, cfg.PeriodDays, cfg.RedisDB, cfg.AllowReplace)
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("Timezone = %q", cfg.Timezone)
	}
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "2s")
	t.Setenv("PERIOD_DAYS", "14")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("ALLOW_ENTRY_REPLACE", "true")

	cfg := New(filepath.Join(t.TempDir(), "missing.env"))
	if cfg.AITimeout != 2*time.Second || cfg.PeriodDays != 14 || !cfg.AllowReplace {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedisDB != 0 {
		t.Errorf("RedisDB = %d, want default for bad value", cfg.RedisDB)
	}
}

func TestNew_LoadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SQLITE_PATH=/tmp/from-file.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SQLITE_PATH", "")
	os.Unsetenv("SQLITE_PATH")

	cfg := New(path)
	if cfg.SQLitePath != "/tmp/from-file.db" {
		t.Errorf("SQLitePath = %q", cfg.SQLitePath)
	}
}
