package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultOrigin is the site the crawler is built for.
const DefaultOrigin = "https://www.hallofeternalchampions.com"

// Config is the root configuration for hallcrawl.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Site    SiteConfig    `mapstructure:"site"    yaml:"site"`
	Reveal  RevealConfig  `mapstructure:"reveal"  yaml:"reveal"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// EngineConfig controls the visit scheduler.
type EngineConfig struct {
	Concurrency       int           `mapstructure:"concurrency"        yaml:"concurrency"`
	MaxVisits         int           `mapstructure:"max_visits"         yaml:"max_visits"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"       yaml:"settle_delay"`
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"      yaml:"headless"`
	Stealth     bool   `mapstructure:"stealth"       yaml:"stealth"`
	WindowSize  string `mapstructure:"window_size"   yaml:"window_size"`
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Bin         string `mapstructure:"bin"           yaml:"bin"`
}

// SiteConfig describes the crawled site: its origin and the category root table.
type SiteConfig struct {
	Origin string `mapstructure:"origin" yaml:"origin"`
	// Categories maps a category slug (gods, heroes, ...) to its listing path.
	Categories map[string]string `mapstructure:"categories" yaml:"categories"`
}

// RevealConfig controls the click/capture/dismiss protocol.
type RevealConfig struct {
	ControlSelector    string        `mapstructure:"control_selector"     yaml:"control_selector"`
	Settle             time.Duration `mapstructure:"settle"               yaml:"settle"`
	DismissSettle      time.Duration `mapstructure:"dismiss_settle"       yaml:"dismiss_settle"`
	DescriptionSettle  time.Duration `mapstructure:"description_settle"   yaml:"description_settle"`
	OverlaySelectors   []string      `mapstructure:"overlay_selectors"    yaml:"overlay_selectors"`
	CloseSelectors     []string      `mapstructure:"close_selectors"      yaml:"close_selectors"`
	ArtifactSkipLabels []string      `mapstructure:"artifact_skip_labels" yaml:"artifact_skip_labels"`
}

// StorageConfig controls output/storage.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"`
	OutputPath      string `mapstructure:"output_path"      yaml:"output_path"`
	BatchSize       int    `mapstructure:"batch_size"       yaml:"batch_size"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level      string `mapstructure:"level"        yaml:"level"`
	Format     string `mapstructure:"format"       yaml:"format"`
	Output     string `mapstructure:"output"       yaml:"output"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"  yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultCategories returns the category root table of the site.
func DefaultCategories() map[string]string {
	return map[string]string{
		"gods":            "/gods",
		"heroes":          "/heroes",
		"monsters":        "/monsters",
		"summons":         "/summons",
		"artefacts":       "/artefacts",
		"gamedefinitions": "/gamedefinitions",
		"conditions":      "/pages/conditions",
		"faqs":            "/faqs",
		"errata":          "/errata",
	}
}

// DefaultOverlaySelectors is the overlay lookup table, tried in order.
func DefaultOverlaySelectors() []string {
	return []string{
		`[role="dialog"]`,
		`[role="alertdialog"]`,
		`.modal`,
		`[class*="modal"]`,
		`[class*="dialog"]`,
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:       4,
			MaxVisits:         1000,
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       1 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:   true,
			Stealth:    true,
			WindowSize: "1920,1080",
		},
		Site: SiteConfig{
			Origin:     DefaultOrigin,
			Categories: DefaultCategories(),
		},
		Reveal: RevealConfig{
			ControlSelector:   `button[type="button"]`,
			Settle:            500 * time.Millisecond,
			DismissSettle:     200 * time.Millisecond,
			DescriptionSettle: 1 * time.Second,
			OverlaySelectors:  DefaultOverlaySelectors(),
			CloseSelectors: []string{
				`[role="dialog"] button[aria-label="Close"]`,
				`[data-state="open"] button[aria-label="Close"]`,
			},
			ArtifactSkipLabels: []string{"All Categories", "All Types", "Clear All", "Close"},
		},
		Storage: StorageConfig{
			Type:            "jsonl",
			OutputPath:      "./output",
			BatchSize:       100,
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "hallcrawl",
			MongoCollection: "documents",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
