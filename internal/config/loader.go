package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"finpipe/internal/common/fsutil"
)

// Operating modes trade cost against latency. Pilot rents on-demand
// compute; production bids on interruptible (spot) capacity.
const (
	ModePilot      = "pilot"
	ModeProduction = "production"
)

// DefaultPath is where the settings store lives unless overridden.
const DefaultPath = "config/settings.json"

// ComputeTier holds per-mode rental limits for GPU stages.
type ComputeTier struct {
	UseSpotInstances bool    `json:"use_spot_instances" yaml:"use_spot_instances" toml:"use_spot_instances"`
	MaxPriceStage1   float64 `json:"max_price_stage1" yaml:"max_price_stage1" toml:"max_price_stage1"`
	MaxPriceStage3   float64 `json:"max_price_stage3" yaml:"max_price_stage3" toml:"max_price_stage3"`
}

// Processing holds stage tuning knobs passed through to stage scripts.
type Processing struct {
	BatchSizeStage3 int     `json:"batch_size_stage3" yaml:"batch_size_stage3" toml:"batch_size_stage3"`
	ImageDPI        int     `json:"image_dpi" yaml:"image_dpi" toml:"image_dpi"`
	ReviewThreshold float64 `json:"review_threshold" yaml:"review_threshold" toml:"review_threshold"`
}

// Paths anchors the pipeline's filesystem layout.
type Paths struct {
	InputPDFs string `json:"input_pdfs" yaml:"input_pdfs" toml:"input_pdfs"`
	Output    string `json:"output" yaml:"output" toml:"output"`
	Scripts   string `json:"scripts" yaml:"scripts" toml:"scripts"`
}

// Settings is the on-disk settings store consumed by the driver and the
// bootstrapper. Zero values are replaced by Default() fields on load.
type Settings struct {
	GeminiAPIKey string `json:"gemini_api_key" yaml:"gemini_api_key" toml:"gemini_api_key"`
	VastAPIKey   string `json:"vast_api_key" yaml:"vast_api_key" toml:"vast_api_key"`
	DockerImage  string `json:"docker_image" yaml:"docker_image" toml:"docker_image"`
	GitRepoURL   string `json:"git_repo_url" yaml:"git_repo_url" toml:"git_repo_url"`
	GitToken     string `json:"git_token" yaml:"git_token" toml:"git_token"`

	Mode       string      `json:"mode" yaml:"mode" toml:"mode"`
	Pilot      ComputeTier `json:"pilot_config" yaml:"pilot_config" toml:"pilot_config"`
	Production ComputeTier `json:"production_config" yaml:"production_config" toml:"production_config"`
	Processing Processing  `json:"processing_config" yaml:"processing_config" toml:"processing_config"`
	Paths      Paths       `json:"paths" yaml:"paths" toml:"paths"`

	// CostEstimates overrides the compiled-in flat cost table. Keys are
	// "<stage>.<backend>", e.g. "stage3.gemini".
	CostEstimates map[string]float64 `json:"cost_estimates" yaml:"cost_estimates" toml:"cost_estimates"`
}

// Default returns the conservative baseline: pilot mode, on-demand
// compute, standard directory layout.
func Default() Settings {
	return Settings{
		Mode: ModePilot,
		Pilot: ComputeTier{
			UseSpotInstances: false,
			MaxPriceStage1:   0.60,
			MaxPriceStage3:   5.00,
		},
		Production: ComputeTier{
			UseSpotInstances: true,
			MaxPriceStage1:   0.60,
			MaxPriceStage3:   5.00,
		},
		Processing: Processing{
			BatchSizeStage3: 20,
			ImageDPI:        300,
			ReviewThreshold: 0.70,
		},
		Paths: Paths{
			InputPDFs: "input_pdfs",
			Output:    "output",
			Scripts:   "scripts",
		},
	}
}

// Load reads the settings store based on its extension.
// Supports: .yaml/.yml, .json, .toml. Missing fields fall back to
// Default() values; API keys additionally fall back to the environment
// (GEMINI_API_KEY, VAST_API_KEY).
func Load(path string) (Settings, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty settings path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Default(), err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Default(), err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Default(), err
		}
	default:
		return cfg, fmt.Errorf("unsupported settings extension: %s", ext)
	}
	cfg.applyFallbacks()
	return cfg, nil
}

func (s *Settings) applyFallbacks() {
	def := Default()
	if s.Mode == "" {
		s.Mode = def.Mode
	}
	if s.Processing.BatchSizeStage3 == 0 {
		s.Processing.BatchSizeStage3 = def.Processing.BatchSizeStage3
	}
	if s.Processing.ImageDPI == 0 {
		s.Processing.ImageDPI = def.Processing.ImageDPI
	}
	if s.Processing.ReviewThreshold == 0 {
		s.Processing.ReviewThreshold = def.Processing.ReviewThreshold
	}
	if s.Paths.InputPDFs == "" {
		s.Paths.InputPDFs = def.Paths.InputPDFs
	}
	if s.Paths.Output == "" {
		s.Paths.Output = def.Paths.Output
	}
	if s.Paths.Scripts == "" {
		s.Paths.Scripts = def.Paths.Scripts
	}
	if s.GeminiAPIKey == "" {
		s.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if s.VastAPIKey == "" {
		s.VastAPIKey = os.Getenv("VAST_API_KEY")
	}
	// Stores written by hand often use ~/annual-reports style paths.
	s.Paths.InputPDFs = expandPath(s.Paths.InputPDFs)
	s.Paths.Output = expandPath(s.Paths.Output)
	s.Paths.Scripts = expandPath(s.Paths.Scripts)
}

// expandPath resolves a leading '~'; a path that cannot be expanded is
// kept as written so the failure surfaces at the point of use.
func expandPath(p string) string {
	expanded, err := fsutil.ExpandHome(p)
	if err != nil {
		return p
	}
	return expanded
}

// Tier resolves the compute tier for the configured operating mode.
// Unrecognized modes resolve to the pilot tier.
func (s Settings) Tier() ComputeTier {
	if s.Mode == ModeProduction {
		return s.Production
	}
	return s.Pilot
}
