package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Wiki connection
	WikiAPIURL   string
	WikiLang     string
	WikiUsername string
	WikiPassword string
	UserAgent    string

	// Wikidata
	WikidataAPIURL    string
	WikidataSPARQLURL string

	// Auth
	VoybotAPIKey string

	// Throttling
	APIRate           float64 // requests per second
	EditRate          float64 // edits per minute
	LookupConcurrency int

	// Runs
	StateDB        string
	RunLogDir      string
	MinOutputRatio float64
	DryRun         bool
	MaxQueueSize   int
	RunTTL         time.Duration

	// Policy file (YAML), optional
	PolicyFile string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		WikiAPIURL:   envOr("WIKI_API_URL", "https://it.wikivoyage.org/w/api.php"),
		WikiLang:     envOr("WIKI_LANG", "it"),
		WikiUsername: os.Getenv("WIKI_USERNAME"),
		WikiPassword: os.Getenv("WIKI_PASSWORD"),
		UserAgent:    os.Getenv("USER_AGENT"),

		WikidataAPIURL:    envOr("WIKIDATA_API_URL", "https://www.wikidata.org/w/api.php"),
		WikidataSPARQLURL: envOr("WIKIDATA_SPARQL_URL", "https://query.wikidata.org/sparql"),

		VoybotAPIKey: os.Getenv("VOYBOT_API_KEY"),

		APIRate:           envFloat("API_RATE", 5),
		EditRate:          envFloat("EDIT_RATE", 10),
		LookupConcurrency: envInt("LOOKUP_CONCURRENCY", 4),

		StateDB:        envOr("STATE_DB", "voybot.db"),
		RunLogDir:      envOr("RUN_LOG_DIR", "logs"),
		MinOutputRatio: envFloat("MIN_OUTPUT_RATIO", 0.5),
		DryRun:         envBool("DRY_RUN", false),
		MaxQueueSize:   envInt("MAX_QUEUE_SIZE", 16),
		RunTTL:         envDuration("RUN_TTL", 24*time.Hour),

		PolicyFile: os.Getenv("VOYBOT_CONFIG"),
	}

	if cfg.APIRate <= 0 {
		cfg.APIRate = 5
	}
	if cfg.EditRate <= 0 {
		cfg.EditRate = 10
	}
	if cfg.LookupConcurrency <= 0 {
		cfg.LookupConcurrency = 4
	}
	if cfg.MinOutputRatio < 0 || cfg.MinOutputRatio > 1 {
		cfg.MinOutputRatio = 0.5
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 16
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = 24 * time.Hour
	}

	return cfg
}

// Validate checks what every run needs. Credentials are only required when
// the bot is going to save.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("USER_AGENT is required")
	}
	if c.WikiAPIURL == "" {
		return fmt.Errorf("WIKI_API_URL is required")
	}
	if !c.DryRun && (c.WikiUsername == "" || c.WikiPassword == "") {
		return fmt.Errorf("WIKI_USERNAME and WIKI_PASSWORD are required unless DRY_RUN is set")
	}
	return nil
}

// ValidateServe adds the HTTP surface requirements to Validate.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.VoybotAPIKey == "" {
		return fmt.Errorf("VOYBOT_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
