package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cfg.DB.Port != 5432 {
		t.Errorf("expected default db port 5432, got %d", cfg.DB.Port)
	}
	if cfg.Safety.DangerExcessMph != 6 {
		t.Errorf("expected danger excess 6 mph, got %v", cfg.Safety.DangerExcessMph)
	}
	if cfg.Safety.StrikeExpiryDays != 30 {
		t.Errorf("expected strike expiry 30 days, got %d", cfg.Safety.StrikeExpiryDays)
	}
	if cfg.Safety.ViolationBatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.Safety.ViolationBatchSize)
	}
	if cfg.Srv.SafetyServicePort != "3002" {
		t.Errorf("expected safety port 3002, got %s", cfg.Srv.SafetyServicePort)
	}
}

func TestNewEnvOverride(t *testing.T) {
	t.Setenv("SAFETY_DANGER_EXCESS_MPH", "8")
	t.Setenv("SAFETY_WARNING_EXCESS_MPH", "5")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cfg.Safety.DangerExcessMph != 8 {
		t.Errorf("env override not applied, danger = %v", cfg.Safety.DangerExcessMph)
	}
	if cfg.DB.Host != "db.internal" {
		t.Errorf("env override not applied, db host = %s", cfg.DB.Host)
	}
}

func TestNewYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
safety:
  danger_excess_mph: 10
  warning_excess_mph: 7
  caution_excess_mph: 3
db:
  host: pg.internal
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if cfg.Safety.DangerExcessMph != 10 {
		t.Errorf("yaml overlay not applied, danger = %v", cfg.Safety.DangerExcessMph)
	}
	if cfg.DB.Host != "pg.internal" {
		t.Errorf("yaml overlay not applied, db host = %s", cfg.DB.Host)
	}
	// keys absent from the file keep their defaults
	if cfg.DB.Port != 5432 {
		t.Errorf("default lost under overlay, db port = %d", cfg.DB.Port)
	}
	if cfg.Safety.StrikeExpiryDays != 30 {
		t.Errorf("default lost under overlay, expiry days = %d", cfg.Safety.StrikeExpiryDays)
	}
}

func TestNewRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("safety: ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	if _, err := New(); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidateThresholdOrder(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	cfg.Safety.WarningExcessMph = cfg.Safety.DangerExcessMph + 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when warning exceeds danger")
	}

	cfg, _ = New()
	cfg.Safety.SmoothingAlpha = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero smoothing alpha")
	}

	cfg, _ = New()
	cfg.Safety.PermStrikeCount = cfg.Safety.TempStrikeCount
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when strike thresholds collide")
	}
}
