package config

import "go-raidguard/internal/logging"

func (c *Config) LogLevel() (logging.LogLevel, error) {
	return logging.ParseLevel(c.Logging.Level)
}

func (c *Config) LoggingOptions() logging.Options {
	level, _ := c.LogLevel()
	return logging.Options{
		Level: level,
		JSON:  c.Logging.Format == "json",
		File:  c.Logging.File,
	}
}
