// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for scrubview.
type Config struct {
	// Input/Output
	Src       string `yaml:"src"`
	OutputDir string `yaml:"output_dir"`

	// Paint surface
	CanvasWidth  int `yaml:"canvas_width"`
	CanvasHeight int `yaml:"canvas_height"`

	// Decode pipeline
	FrameDecode   bool   `yaml:"frame_decode"`
	FFmpegPath    string `yaml:"ffmpeg_path"`
	SettleDelayMs int    `yaml:"settle_delay_ms"`

	// Transition tuning
	TransitionSpeedCap float64 `yaml:"transition_speed_cap"`
	FrameThreshold     float64 `yaml:"frame_threshold"`
	RateGain           float64 `yaml:"rate_gain"`
	RateLimit          float64 `yaml:"rate_limit"`
	TickFPS            float64 `yaml:"tick_fps"`

	// Platform capability
	DirectSeekForward bool `yaml:"direct_seek_forward"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// Defaults returns a Config with default values. The transition
// constants are empirical smoothing parameters, carried as-is.
func Defaults() Config {
	return Config{
		CanvasWidth:  640,
		CanvasHeight: 360,

		FrameDecode:   true,
		SettleDelayMs: 500,

		TransitionSpeedCap: 8,
		FrameThreshold:     0.1,
		RateGain:           4,
		RateLimit:          16,
		TickFPS:            60,

		DebugDir: "./debug",
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
