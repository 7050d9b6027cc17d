package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ivlev/chatdetect/internal/chat"
)

type Config struct {
	InputPath    string
	Backend      string
	ProfileName  string
	ProfilePath  string
	Scoring      string
	Detector     string
	Threshold    float64
	Workers      int
	DPI          int
	ReportPath   string
	ReplayDir    string
	ServeAddr    string
	LogLevel     string
	LogFormat    string
	BuildVersion string

	// Ключи берутся только из окружения
	YandexAPIKey      string
	YandexFolderID    string
	GoogleCredentials string
	TesseractLangs    string
}

// Default возвращает настройки по умолчанию.
func Default() *Config {
	return &Config{
		Backend:        "yandex",
		Scoring:        "auto",
		Detector:       "contrast",
		Threshold:      chat.DefaultThreshold,
		DPI:            150,
		LogLevel:       "info",
		LogFormat:      "text",
		TesseractLangs: "eng+rus",
	}
}

// LoadEnv загружает .env файлы (по умолчанию ./.env) в окружение.
// Отсутствие ./.env не ошибка.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if len(files) == 0 && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env: %w", err)
	}
	return nil
}

// ApplyEnv берет ключи и переопределения из окружения.
func (c *Config) ApplyEnv() error {
	c.YandexAPIKey = getEnvOrDefault("OCR_API", c.YandexAPIKey)
	c.YandexFolderID = getEnvOrDefault("YANDEX_FOLDER_ID", c.YandexFolderID)
	c.GoogleCredentials = getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleCredentials)
	c.TesseractLangs = getEnvOrDefault("TESSERACT_LANGS", c.TesseractLangs)

	if v := os.Getenv("CHATDETECT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CHATDETECT_THRESHOLD must be a number, got %q", v)
		}
		c.Threshold = f
	}
	if v := os.Getenv("CHATDETECT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATDETECT_WORKERS must be an integer, got %q", v)
		}
		c.Workers = n
	}
	return nil
}

// Validate проверяет сочетание настроек до открытия источников.
func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %v", c.Threshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive, got %d", c.DPI)
	}
	switch c.Scoring {
	case "alternation", "region", "auto", "bubble":
	default:
		return fmt.Errorf("unknown scoring mode: %s", c.Scoring)
	}
	if c.Scoring == "region" && c.Detector == "none" {
		return errors.New("region scoring needs a bubble detector")
	}
	if c.Scoring == "bubble" {
		return nil
	}

	switch c.Backend {
	case "yandex":
		if c.YandexAPIKey == "" || c.YandexFolderID == "" {
			return errors.New("yandex backend needs OCR_API and YANDEX_FOLDER_ID")
		}
	case "replay":
		if c.ReplayDir == "" {
			return errors.New("replay backend needs -replay-dir")
		}
	case "tesseract", "google":
	default:
		return fmt.Errorf("unknown OCR backend: %s", c.Backend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
