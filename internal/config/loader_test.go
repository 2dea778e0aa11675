package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "settings.json", `{
		"gemini_api_key": "g-key",
		"vast_api_key": "v-key",
		"mode": "production",
		"production_config": {"use_spot_instances": true, "max_price_stage3": 4.5},
		"processing_config": {"review_threshold": 0.8},
		"paths": {"output": "out"},
		"cost_estimates": {"stage3.gemini": 0.2}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeProduction {
		t.Errorf("Mode = %q, want production", cfg.Mode)
	}
	if !cfg.Tier().UseSpotInstances {
		t.Error("production tier should use spot instances")
	}
	if cfg.Tier().MaxPriceStage3 != 4.5 {
		t.Errorf("MaxPriceStage3 = %v, want 4.5", cfg.Tier().MaxPriceStage3)
	}
	if cfg.Processing.ReviewThreshold != 0.8 {
		t.Errorf("ReviewThreshold = %v, want 0.8", cfg.Processing.ReviewThreshold)
	}
	if cfg.Paths.Output != "out" {
		t.Errorf("Paths.Output = %q, want out", cfg.Paths.Output)
	}
	// untouched fields fall back to defaults
	if cfg.Paths.Scripts != "scripts" {
		t.Errorf("Paths.Scripts = %q, want default scripts", cfg.Paths.Scripts)
	}
	if cfg.Processing.ImageDPI != 300 {
		t.Errorf("ImageDPI = %d, want default 300", cfg.Processing.ImageDPI)
	}
	if cfg.CostEstimates["stage3.gemini"] != 0.2 {
		t.Errorf("cost override missing: %v", cfg.CostEstimates)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "settings.yaml", "mode: pilot\npaths:\n  input_pdfs: incoming\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.InputPDFs != "incoming" {
		t.Errorf("InputPDFs = %q, want incoming", cfg.Paths.InputPDFs)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "settings.toml", "mode = \"production\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModeProduction {
		t.Errorf("Mode = %q, want production", cfg.Mode)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "settings.ini", "mode=pilot")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	path := writeFile(t, "settings.json", `{"mode": "pilot"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiAPIKey != "from-env" {
		t.Errorf("GeminiAPIKey = %q, want from-env", cfg.GeminiAPIKey)
	}
}

func TestTierUnknownModeIsPilot(t *testing.T) {
	s := Default()
	s.Mode = "weird"
	if s.Tier().UseSpotInstances {
		t.Error("unknown mode should fall back to on-demand pilot tier")
	}
}

func TestLoadExpandsHomeInPaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeFile(t, "settings.json", `{
		"paths": {"input_pdfs": "~/reports/in", "output": "~/reports/out", "scripts": "scripts"}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(home, "reports", "in"); cfg.Paths.InputPDFs != want {
		t.Errorf("InputPDFs = %q, want %q", cfg.Paths.InputPDFs, want)
	}
	if want := filepath.Join(home, "reports", "out"); cfg.Paths.Output != want {
		t.Errorf("Output = %q, want %q", cfg.Paths.Output, want)
	}
	// paths without '~' pass through untouched
	if cfg.Paths.Scripts != "scripts" {
		t.Errorf("Scripts = %q, want scripts", cfg.Paths.Scripts)
	}
}
