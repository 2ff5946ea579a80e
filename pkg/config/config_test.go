package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if !cfg.FrameDecode {
		t.Error("frame decode should default to enabled")
	}
	if cfg.TransitionSpeedCap != 8 || cfg.FrameThreshold != 0.1 || cfg.RateGain != 4 || cfg.RateLimit != 16 {
		t.Errorf("unexpected transition defaults: %+v", cfg)
	}
	if cfg.TickFPS != 60 {
		t.Errorf("expected 60 fps default, got %f", cfg.TickFPS)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrubview.yaml")
	content := []byte("src: video.mp4\ntransition_speed_cap: 12\nframe_decode: false\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Src != "video.mp4" {
		t.Errorf("src: got %s", cfg.Src)
	}
	if cfg.TransitionSpeedCap != 12 {
		t.Errorf("speed cap: got %f", cfg.TransitionSpeedCap)
	}
	if cfg.FrameDecode {
		t.Error("frame_decode: false not applied")
	}
	// Untouched fields keep defaults.
	if cfg.FrameThreshold != 0.1 {
		t.Errorf("frame threshold default lost: %f", cfg.FrameThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
