package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FailureConfig holds the failure engine tuning options.
type FailureConfig struct {
	InitialFailureProbability    float64 `json:"initialFailureProbability" mapstructure:"initialFailureProbability"`
	MaxFailureAltitudePercentage float64 `json:"maxFailureAltitudePercentage" mapstructure:"maxFailureAltitudePercentage"`
	MinTimeBeforeFailure         float64 `json:"minTimeBeforeFailure" mapstructure:"minTimeBeforeFailure"`
	MaxTimeBeforeFailure         float64 `json:"maxTimeBeforeFailure" mapstructure:"maxTimeBeforeFailure"`
	PreFailureWarningTime        float64 `json:"preFailureWarningTime" mapstructure:"preFailureWarningTime"`
	DelayBetweenPartFailures     float64 `json:"delayBetweenPartFailures" mapstructure:"delayBetweenPartFailures"`
	PropagationProbability       float64 `json:"propagationProbability" mapstructure:"propagationProbability"`
	PropagationChanceDecreases   bool    `json:"propagationChanceDecreases" mapstructure:"propagationChanceDecreases"`
	AutoAbort                    bool    `json:"autoAbort" mapstructure:"autoAbort"`
	AutoAbortDelay               float64 `json:"autoAbortDelay" mapstructure:"autoAbortDelay"`
	HighlightFailingPart         bool    `json:"highlightFailingPart" mapstructure:"highlightFailingPart"`
}

// SimConfig holds the flight simulation host settings.
type SimConfig struct {
	TicksPerSecond float64 `json:"ticksPerSecond" mapstructure:"ticksPerSecond"`
	Seed           int64   `json:"seed" mapstructure:"seed"`
	CraftFile      string  `json:"craftFile" mapstructure:"craftFile"`
	LaunchSite     string  `json:"launchSite" mapstructure:"launchSite"`
	CaptureDelay   float64 `json:"captureDelay" mapstructure:"captureDelay"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds local sqlite storage backend settings
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebsocketConfig holds live streaming backend settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the flight storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("defaultTag", "Test Flight")
	viper.SetDefault("logsDir", "./launchlogs")

	viper.SetDefault("failure.initialFailureProbability", 0.02)
	viper.SetDefault("failure.maxFailureAltitudePercentage", 0.65)
	viper.SetDefault("failure.minTimeBeforeFailure", 2.0)
	viper.SetDefault("failure.maxTimeBeforeFailure", 30.0)
	viper.SetDefault("failure.preFailureWarningTime", 5.0)
	viper.SetDefault("failure.delayBetweenPartFailures", 0.2)
	viper.SetDefault("failure.propagationProbability", 0.7)
	viper.SetDefault("failure.propagationChanceDecreases", false)
	viper.SetDefault("failure.autoAbort", false)
	viper.SetDefault("failure.autoAbortDelay", 5.0)
	viper.SetDefault("failure.highlightFailingPart", true)

	viper.SetDefault("sim.ticksPerSecond", 50.0)
	viper.SetDefault("sim.seed", 0)
	viper.SetDefault("sim.craftFile", "")
	viper.SetDefault("sim.launchSite", "KSC")
	viper.SetDefault("sim.captureDelay", 1.0)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "launchsim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "launchsim-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "launchsim")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./flights")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.path", "./launchsim.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:8765/record")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetConfigName("launchsim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetFailureConfig returns the failure engine options.
func GetFailureConfig() FailureConfig {
	return FailureConfig{
		InitialFailureProbability:    viper.GetFloat64("failure.initialFailureProbability"),
		MaxFailureAltitudePercentage: viper.GetFloat64("failure.maxFailureAltitudePercentage"),
		MinTimeBeforeFailure:         viper.GetFloat64("failure.minTimeBeforeFailure"),
		MaxTimeBeforeFailure:         viper.GetFloat64("failure.maxTimeBeforeFailure"),
		PreFailureWarningTime:        viper.GetFloat64("failure.preFailureWarningTime"),
		DelayBetweenPartFailures:     viper.GetFloat64("failure.delayBetweenPartFailures"),
		PropagationProbability:       viper.GetFloat64("failure.propagationProbability"),
		PropagationChanceDecreases:   viper.GetBool("failure.propagationChanceDecreases"),
		AutoAbort:                    viper.GetBool("failure.autoAbort"),
		AutoAbortDelay:               viper.GetFloat64("failure.autoAbortDelay"),
		HighlightFailingPart:         viper.GetBool("failure.highlightFailingPart"),
	}
}

// GetSimConfig returns the simulation host settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TicksPerSecond: viper.GetFloat64("sim.ticksPerSecond"),
		Seed:           viper.GetInt64("sim.seed"),
		CraftFile:      viper.GetString("sim.craftFile"),
		LaunchSite:     viper.GetString("sim.launchSite"),
		CaptureDelay:   viper.GetFloat64("sim.captureDelay"),
	}
}

// GetStorageConfig returns the storage backend selection and settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}
