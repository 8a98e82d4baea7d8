package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultSocketPath    = "/tmp/letra_cancion.sock"
	DefaultCheckInterval = 2 * time.Second
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultTickInterval  = 100 * time.Millisecond
	DefaultManualTimeout = 5 * time.Second
)

func getDefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "letra-cancion")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "letra_cancion_cache"
	}

	return filepath.Join(homeDir, ".cache", "letra-cancion")
}

// TomlConfig mirrors the on-disk config.toml layout.
type TomlConfig struct {
	App struct {
		SocketPath    string `toml:"socket_path"`
		CheckInterval string `toml:"check_interval"`
		CacheDir      string `toml:"cache_dir"`
	} `toml:"app"`

	Player struct {
		Backend      string `toml:"backend"` // "mpris" or "playerctl"
		PollInterval string `toml:"poll_interval"`
	} `toml:"player"`

	Sync struct {
		ManualTimeout     string `toml:"manual_timeout"`
		TickInterval      string `toml:"tick_interval"`
		OffsetStepMs      int64  `toml:"offset_step_ms"`
		MinLineDurationMs int64  `toml:"min_line_duration_ms"`
		DefaultDurationMs int64  `toml:"default_duration_ms"`
	} `toml:"sync"`

	Translation struct {
		Enabled    bool   `toml:"enabled"`
		Backend    string `toml:"backend"` // "gemini", "openai" or "tencent"
		APIKey     string `toml:"api_key"`
		Model      string `toml:"model"`
		BaseURL    string `toml:"base_url"` // for OpenAI-compatible servers
		SecretID   string `toml:"secret_id"`
		SecretKey  string `toml:"secret_key"`
		SourceLang string `toml:"source_lang"`
		TargetLang string `toml:"target_lang"`
	} `toml:"translation"`

	Redis struct {
		Enabled  bool   `toml:"enabled"`
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	CacheDir      string
}

// PlayerConfig selects the playback source and its poll cadence.
type PlayerConfig struct {
	Backend      string
	PollInterval time.Duration
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	ManualTimeout     time.Duration
	TickInterval      time.Duration
	OffsetStepMs      int64
	MinLineDurationMs int64
	DefaultDurationMs int64
}

// TranslationConfig configures the translation backend and cache.
type TranslationConfig struct {
	Enabled    bool
	Backend    string
	APIKey     string
	Model      string
	BaseURL    string
	SecretID   string
	SecretKey  string
	SourceLang string
	TargetLang string
}

// RedisConfig configures the optional redis cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// Config is the resolved runtime configuration.
type Config struct {
	App         AppConfig
	Player      PlayerConfig
	Sync        SyncConfig
	Translation TranslationConfig
	Redis       RedisConfig
}

func getConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "letra-cancion", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "letra-cancion", "config.toml")
}

func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

func parseDurationOr(value string, fallback time.Duration, field string) time.Duration {
	if value == "" {
		return fallback
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARN: Invalid %s format '%s', using default", field, value)
		return fallback
	}
	return duration
}

func Load() *Config {
	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			CacheDir:      getDefaultCacheDir(),
		},
		Player: PlayerConfig{
			Backend:      "mpris",
			PollInterval: DefaultPollInterval,
		},
		Sync: SyncConfig{
			ManualTimeout:     DefaultManualTimeout,
			TickInterval:      DefaultTickInterval,
			OffsetStepMs:      500,
			MinLineDurationMs: 1500,
			DefaultDurationMs: 180000,
		},
		Translation: TranslationConfig{
			Enabled:    false,
			Backend:    "gemini",
			SourceLang: "auto",
			TargetLang: "es",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
	}

	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}
	config.App.CheckInterval = parseDurationOr(tomlConfig.App.CheckInterval, config.App.CheckInterval, "check_interval")
	if tomlConfig.App.CacheDir != "" {
		config.App.CacheDir = tomlConfig.App.CacheDir
	}

	if tomlConfig.Player.Backend != "" {
		config.Player.Backend = tomlConfig.Player.Backend
	}
	config.Player.PollInterval = parseDurationOr(tomlConfig.Player.PollInterval, config.Player.PollInterval, "poll_interval")

	config.Sync.ManualTimeout = parseDurationOr(tomlConfig.Sync.ManualTimeout, config.Sync.ManualTimeout, "manual_timeout")
	config.Sync.TickInterval = parseDurationOr(tomlConfig.Sync.TickInterval, config.Sync.TickInterval, "tick_interval")
	if tomlConfig.Sync.OffsetStepMs != 0 {
		config.Sync.OffsetStepMs = tomlConfig.Sync.OffsetStepMs
	}
	if tomlConfig.Sync.MinLineDurationMs != 0 {
		config.Sync.MinLineDurationMs = tomlConfig.Sync.MinLineDurationMs
	}
	if tomlConfig.Sync.DefaultDurationMs != 0 {
		config.Sync.DefaultDurationMs = tomlConfig.Sync.DefaultDurationMs
	}

	config.Translation.Enabled = tomlConfig.Translation.Enabled
	if tomlConfig.Translation.Backend != "" {
		config.Translation.Backend = tomlConfig.Translation.Backend
	}
	if tomlConfig.Translation.APIKey != "" {
		config.Translation.APIKey = tomlConfig.Translation.APIKey
	}
	if tomlConfig.Translation.Model != "" {
		config.Translation.Model = tomlConfig.Translation.Model
	}
	if tomlConfig.Translation.BaseURL != "" {
		config.Translation.BaseURL = tomlConfig.Translation.BaseURL
	}
	if tomlConfig.Translation.SecretID != "" {
		config.Translation.SecretID = tomlConfig.Translation.SecretID
	}
	if tomlConfig.Translation.SecretKey != "" {
		config.Translation.SecretKey = tomlConfig.Translation.SecretKey
	}
	if tomlConfig.Translation.SourceLang != "" {
		config.Translation.SourceLang = tomlConfig.Translation.SourceLang
	}
	if tomlConfig.Translation.TargetLang != "" {
		config.Translation.TargetLang = tomlConfig.Translation.TargetLang
	}

	config.Redis.Enabled = tomlConfig.Redis.Enabled
	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}
	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}
	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}

	if config.Translation.Enabled && config.Translation.Backend != "tencent" && config.Translation.APIKey == "" {
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
		log.Println("!!! WARNING: Translation is enabled but no API key is set.    !!!")
		log.Printf("!!! Please set translation.api_key in %s", getConfigPath())
		log.Println("!!! Lyrics will be shown without translations.                !!!")
		log.Println("!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!")
	}

	return config
}
