package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		SessionTTL string `yaml:"session_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		QuestionSet     string `yaml:"question_set"`
		QuestionTTL     string `yaml:"question_ttl"`
		TimeLimit       string `yaml:"time_limit"`
		FeedbackDelay   string `yaml:"feedback_delay"`
		WelcomeDelay    string `yaml:"welcome_delay"`
		AutoSubmitGrace string `yaml:"auto_submit_grace"`
		ResultHold      string `yaml:"result_hold"`
		MaxAttempts     int    `yaml:"max_attempts"`
		PassMark        int    `yaml:"pass_mark"`
		TopN            int    `yaml:"top_n"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or invalid.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
