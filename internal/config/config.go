package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Gemini struct {
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"gemini"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`

	Security struct {
		AllowedOrigins []string          `yaml:"allowedOrigins"`
		OriginPatterns []string          `yaml:"originPatterns"`
		AdminAPIKeys   map[string]string `yaml:"adminApiKeys"`
	} `yaml:"security"`

	Limits struct {
		MaxRequestMB      int64 `yaml:"maxRequestMB"`
		MaxFileMB         int64 `yaml:"maxFileMB"`
		RateLimitMax      int   `yaml:"rateLimitMax"`
		RateWindowMinutes int   `yaml:"rateWindowMinutes"`
		BurstCapacity     int   `yaml:"burstCapacity"`
		BurstRefillPerSec int   `yaml:"burstRefillPerSec"`
	} `yaml:"limits"`

	Archive struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`
}

// Load reads the yaml config file, then applies defaults and environment
// overrides for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Gemini.Endpoint == "" {
		c.Gemini.Endpoint = "https://generativelanguage.googleapis.com"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Limits.MaxRequestMB == 0 {
		c.Limits.MaxRequestMB = 10
	}
	if c.Limits.MaxFileMB == 0 {
		c.Limits.MaxFileMB = 5
	}
	if c.Limits.RateLimitMax == 0 {
		c.Limits.RateLimitMax = 20
	}
	if c.Limits.RateWindowMinutes == 0 {
		c.Limits.RateWindowMinutes = 60
	}
	if c.Limits.BurstCapacity == 0 {
		c.Limits.BurstCapacity = 10
	}
	if c.Limits.BurstRefillPerSec == 0 {
		c.Limits.BurstRefillPerSec = 1
	}
}

// applyEnv lets secrets come from the environment instead of the yaml file.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY"); v != "" {
		c.Archive.AccessKey = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_KEY"); v != "" {
		c.Archive.SecretKey = v
	}
}

func (c *Config) MaxRequestBytes() int64 { return c.Limits.MaxRequestMB << 20 }

func (c *Config) MaxFileBytes() int64 { return c.Limits.MaxFileMB << 20 }

func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Limits.RateWindowMinutes) * time.Minute
}

// MySQLDSN builds the DSN for the mysql driver
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the DSN for the pq driver
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
