package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Minio struct {
		Endpoint             string `yaml:"endpoint"`
		AccessKey            string `yaml:"accessKey"`
		SecretKey            string `yaml:"secretKey"`
		BucketName           string `yaml:"bucketName"`
		Region               string `yaml:"region"`
		UseSSL               bool   `yaml:"useSSL"`
		PresignExpiryMinutes int    `yaml:"presignExpiryMinutes"`
	} `yaml:"minio"`

	AI struct {
		APIKey              string  `yaml:"apiKey"`
		BaseURL             string  `yaml:"baseURL"`
		Model               string  `yaml:"model"`
		Temperature         float32 `yaml:"temperature"`
		MaxOutputTokens     int     `yaml:"maxOutputTokens"`
		PollIntervalSeconds int     `yaml:"pollIntervalSeconds"`
		PollTimeoutSeconds  int     `yaml:"pollTimeoutSeconds"`
	} `yaml:"ai"`

	Viewer struct {
		Command   string `yaml:"command"`
		ScansRoot string `yaml:"scansRoot"`
	} `yaml:"viewer"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// API key may come from the environment instead of the file.
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	return &cfg, nil
}

func (c *Config) PresignExpiry() time.Duration {
	return time.Duration(c.Minio.PresignExpiryMinutes) * time.Minute
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.AI.PollIntervalSeconds) * time.Second
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.AI.PollTimeoutSeconds) * time.Second
}
