package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Inference InferenceConfig `yaml:"inference"`
	Models    ModelsConfig    `yaml:"models"`
	Assist    AssistConfig    `yaml:"assist"`
	Trainer   TrainerConfig   `yaml:"trainer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StaticDir    string        `yaml:"static_dir"`
}

// BackendConfig points at the external trainer and inference services.
type BackendConfig struct {
	TrainerURL   string        `yaml:"trainer_url"`
	InferenceURL string        `yaml:"inference_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	MySQL MySQLConfig `yaml:"mysql"`
	Redis RedisConfig `yaml:"redis"`
}

type MySQLConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

type InferenceConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	GalleryLimit int           `yaml:"gallery_limit"`
	NoAutoLoad   bool          `yaml:"no_auto_load"`
}

type ModelsConfig struct {
	BannerTTL time.Duration `yaml:"banner_ttl"`
}

// AssistConfig configures the optional OpenAI-compatible prompt assistant.
type AssistConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TrainerConfig seeds the shared TrainingConfig when no snapshot was persisted.
type TrainerConfig struct {
	ConfigFile string `yaml:"config_file"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML without touching the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Default returns a config usable without a file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRAINER_BACKEND_URL"); v != "" {
		c.Backend.TrainerURL = v
	}
	if v := os.Getenv("INFERENCE_BACKEND_URL"); v != "" {
		c.Backend.InferenceURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Assist.APIKey = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Database.Redis.Password = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		c.Database.MySQL.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Backend.TrainerURL == "" {
		c.Backend.TrainerURL = "http://localhost:8000"
	}
	if c.Backend.InferenceURL == "" {
		c.Backend.InferenceURL = c.Backend.TrainerURL
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Database.Redis.Host == "" {
		c.Database.Redis.Host = "localhost"
	}
	if c.Database.Redis.Port == 0 {
		c.Database.Redis.Port = 6379
	}
	if c.Database.Redis.KeyPrefix == "" {
		c.Database.Redis.KeyPrefix = "trainer-console"
	}
	if c.Database.MySQL.Port == 0 {
		c.Database.MySQL.Port = 3306
	}
	if c.Inference.PollInterval == 0 {
		c.Inference.PollInterval = time.Second
	}
	if c.Inference.GalleryLimit == 0 {
		c.Inference.GalleryLimit = 50
	}
	if c.Models.BannerTTL == 0 {
		c.Models.BannerTTL = 3 * time.Second
	}
	if c.Assist.Model == "" {
		c.Assist.Model = "gpt-4o-mini"
	}
	if c.Assist.MaxTokens == 0 {
		c.Assist.MaxTokens = 300
	}
	if c.Assist.Timeout == 0 {
		c.Assist.Timeout = 30 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// Validate rejects settings that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Inference.PollInterval < 0 {
		return fmt.Errorf("inference.poll_interval must be positive")
	}
	if c.Inference.GalleryLimit < 0 {
		return fmt.Errorf("inference.gallery_limit must be positive")
	}
	if c.Assist.Enabled && c.Assist.APIKey == "" && c.Assist.BaseURL == "" {
		return fmt.Errorf("assist is enabled but neither api_key nor base_url is set")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
