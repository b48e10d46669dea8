package config

import "github.com/lone-faerie/lenconv/log"

// LogConfig is the configuration of the logger.
type LogConfig struct {
	Level log.Level `yaml:"level"`
	// Output is "stderr" (default), "stdout", "discard" or the path of a file
	// to append to.
	Output string `yaml:"output"`
	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

var DefaultLog = LogConfig{
	Level:  log.LevelInfo,
	Output: "stderr",
	Format: "text",
}
