package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/chatdetect/internal/chat"
)

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := Default()
		c.YandexAPIKey = "key"
		c.YandexFolderID = "folder"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with credentials", func(c *Config) {}, false},
		{"threshold too high", func(c *Config) { c.Threshold = 1.5 }, true},
		{"negative workers", func(c *Config) { c.Workers = -1 }, true},
		{"zero dpi", func(c *Config) { c.DPI = 0 }, true},
		{"unknown scoring", func(c *Config) { c.Scoring = "vibes" }, true},
		{"region without detector", func(c *Config) { c.Scoring = "region"; c.Detector = "none" }, true},
		{"yandex without key", func(c *Config) { c.YandexAPIKey = "" }, true},
		{"bubble needs no OCR", func(c *Config) { c.Scoring = "bubble"; c.YandexAPIKey = "" }, false},
		{"replay without dir", func(c *Config) { c.Backend = "replay" }, true},
		{"replay with dir", func(c *Config) { c.Backend = "replay"; c.ReplayDir = "testdata" }, false},
		{"tesseract", func(c *Config) { c.Backend = "tesseract" }, false},
		{"unknown backend", func(c *Config) { c.Backend = "abbyy" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvAndApply(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	content := "OCR_API=secret\nYANDEX_FOLDER_ID=b1g\nCHATDETECT_WORKERS=3\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"OCR_API", "YANDEX_FOLDER_ID", "CHATDETECT_WORKERS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadEnv(envFile); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if c.YandexAPIKey != "secret" || c.YandexFolderID != "b1g" || c.Workers != 3 {
		t.Errorf("Unexpected config %+v", c)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("Expected error for an explicit missing file")
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("CHATDETECT_THRESHOLD", "high")
	if err := Default().ApplyEnv(); err == nil {
		t.Error("Expected error for non-numeric threshold")
	}
}

func TestBuiltInProfiles(t *testing.T) {
	tests := []struct {
		name       string
		ef, sf     float64
		timestamps chat.TimestampPolicy
		dropMiddle bool
	}{
		{"yandex", 0.19, 1.5, chat.TimestampSkip, true},
		{"tesseract", 0.19, 1.37, chat.TimestampMerge, false},
		{"bubble", 0.18, 1.7, chat.TimestampMerge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LookupProfile(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			params, err := p.Params()
			if err != nil {
				t.Fatalf("Params failed: %v", err)
			}
			if params.EdgeFraction != tt.ef || params.ShrinkFactor != tt.sf ||
				params.Timestamps != tt.timestamps || params.DropMiddle != tt.dropMiddle {
				t.Errorf("Unexpected params %+v", params)
			}
		})
	}

	if _, err := LookupProfile("whatsapp"); err == nil {
		t.Error("Expected error for unknown profile")
	}
}

func TestParseProfileInheritsBase(t *testing.T) {
	data := []byte("name: custom\nbase: tesseract\nshrink_factor: 1.2\n")

	p, err := ParseProfile(data)
	if err != nil {
		t.Fatalf("ParseProfile failed: %v", err)
	}
	if p.Name != "custom" || p.ShrinkFactor != 1.2 || p.EdgeFraction != 0.19 || p.Timestamps != "merge" {
		t.Errorf("Unexpected profile %+v", p)
	}
	if p.Weights != chat.TextWeights {
		t.Errorf("Expected inherited weights, got %+v", p.Weights)
	}
}

func TestParseProfileRejectsInvalid(t *testing.T) {
	tests := []string{
		"edge_fraction: 0.7\n",
		"timestamps: drop\n",
		"base: unknown\n",
		"edge_fraction: [1, 2]\n",
	}
	for _, data := range tests {
		if _, err := ParseProfile([]byte(data)); err == nil {
			t.Errorf("Expected error for %q", data)
		}
	}
}

func TestResolveProfile(t *testing.T) {
	c := Default()
	c.Backend = "tesseract"
	p, err := c.ResolveProfile()
	if err != nil || p.Name != "tesseract" {
		t.Errorf("Expected tesseract profile, got %s (%v)", p.Name, err)
	}

	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte("name: file\nbase: bubble\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c.ProfilePath = path
	p, err = c.ResolveProfile()
	if err != nil || p.Name != "file" || p.ShrinkFactor != 1.7 {
		t.Errorf("Expected file profile based on bubble, got %+v (%v)", p, err)
	}
}
