package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ridge/must/v2"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/chatdetect/internal/analyzer"
	"github.com/ivlev/chatdetect/internal/config"
	"github.com/ivlev/chatdetect/internal/engine"
	"github.com/ivlev/chatdetect/internal/logging"
	"github.com/ivlev/chatdetect/internal/ocr"
	"github.com/ivlev/chatdetect/internal/report"
	"github.com/ivlev/chatdetect/internal/server"
	"github.com/ivlev/chatdetect/internal/source"
	"github.com/ivlev/chatdetect/internal/system"
)

// version задается при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Default()
	cfg.BuildVersion = version

	envPtr := flag.String("env", "", "Путь к .env файлу (по умолчанию: ./.env, если есть)")
	flag.StringVar(&cfg.InputPath, "input", "", "Скриншот, папка со скриншотами или PDF (по умолчанию: самый свежий файл в input/)")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "OCR: yandex, tesseract, google, replay")
	profilePtr := flag.String("profile", "", "Профиль кластеризации: yandex, tesseract, bubble или путь к YAML")
	flag.StringVar(&cfg.Scoring, "scoring", cfg.Scoring, "Оценка: alternation, region, auto, bubble")
	flag.StringVar(&cfg.Detector, "detector", cfg.Detector, "Детектор пузырей: contrast, none")
	flag.Float64Var(&cfg.Threshold, "threshold", cfg.Threshold, "Порог уверенности для решения \"conversation\"")
	flag.IntVar(&cfg.Workers, "workers", 0, "Потоки (0 - по числу логических ядер)")
	flag.IntVar(&cfg.DPI, "dpi", cfg.DPI, "DPI для страниц PDF")
	flag.StringVar(&cfg.ReportPath, "report", "", "Путь к YAML отчету (если пусто, генерируется в reports/)")
	flag.StringVar(&cfg.ReplayDir, "replay-dir", "", "Папка с сохраненными ответами OCR для -backend replay")
	flag.StringVar(&cfg.ServeAddr, "serve", "", "Запустить HTTP сервер на адресе (например, :8080) вместо пакетной обработки")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Уровень логов: debug, info, warn, error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Формат логов: text, json")
	versionPtr := flag.Bool("version", false, "Показать версию и выйти")

	flag.Parse()

	if *versionPtr {
		fmt.Println("chatdetect", cfg.BuildVersion)
		return
	}

	if *envPtr != "" {
		must.OK(config.LoadEnv(*envPtr))
	} else {
		must.OK(config.LoadEnv())
	}

	// Флаги важнее переменных окружения: запоминаем явно заданные
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	threshold, workers := cfg.Threshold, cfg.Workers
	must.OK(cfg.ApplyEnv())
	if explicit["threshold"] {
		cfg.Threshold = threshold
	}
	if explicit["workers"] {
		cfg.Workers = workers
	}

	if isProfileFile(*profilePtr) {
		cfg.ProfilePath = *profilePtr
	} else {
		cfg.ProfileName = *profilePtr
	}

	logger := must.OK1(logging.New(cfg.LogLevel, cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	profile, err := cfg.ResolveProfile()
	if err != nil {
		logger.Fatalf("[-] Ошибка профиля: %v", err)
	}

	system.InitResourceLimits(logger)
	if cfg.Workers == 0 {
		cfg.Workers = system.DefaultWorkers()
	}
	if status, err := system.MemoryStatus(); err == nil {
		logger.Debugf("[*] Память: %s", status)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := newPipeline(ctx, cfg, profile, logger)

	if cfg.ServeAddr != "" {
		handler := server.NewHandler(pipeline, logger)
		logger.Infof("[*] HTTP сервер слушает %s", cfg.ServeAddr)
		must.OK(http.ListenAndServe(cfg.ServeAddr, handler.Routes()))
		return
	}

	if err := runBatch(ctx, cfg, pipeline, logger); err != nil {
		logger.Fatalf("[-] Ошибка: %v", err)
	}
}

func newPipeline(ctx context.Context, cfg *config.Config, profile config.Profile, logger *logrus.Logger) *engine.Pipeline {
	scoring := must.OK1(engine.ParseScoring(cfg.Scoring))

	detector, err := analyzer.NewDetector(cfg.Detector)
	if err != nil {
		logger.Fatalf("[-] Ошибка детектора: %v", err)
	}

	var backend ocr.Engine
	if scoring != engine.ScoringBubble {
		backend, err = ocr.NewEngine(ctx, cfg.Backend, ocr.Options{
			YandexAPIKey:      cfg.YandexAPIKey,
			YandexFolderID:    cfg.YandexFolderID,
			TesseractLangs:    cfg.TesseractLangs,
			ReplayDir:         cfg.ReplayDir,
			GoogleCredentials: cfg.GoogleCredentials,
			Logger:            logger,
		})
		if err != nil {
			logger.Fatalf("[-] Ошибка OCR: %v", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"backend":   cfg.Backend,
		"profile":   profile.Name,
		"scoring":   scoring,
		"threshold": cfg.Threshold,
		"workers":   cfg.Workers,
	}).Info("[*] Конфигурация")

	return &engine.Pipeline{
		OCR:       backend,
		Detector:  detector,
		Profile:   profile,
		Scoring:   scoring,
		Threshold: cfg.Threshold,
		Logger:    logger,
	}
}

func runBatch(ctx context.Context, cfg *config.Config, pipeline *engine.Pipeline, logger *logrus.Logger) error {
	inputPath := cfg.InputPath
	if inputPath == "" {
		latest, err := system.FindLatestImage("input")
		if err != nil {
			return fmt.Errorf("%v. Положите скриншоты в input/", err)
		}
		inputPath = latest
		logger.Infof("[*] Выбран файл: %s", inputPath)
	}

	src, err := source.Open(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	rep := report.New(cfg.Backend, pipeline.Profile.Name, string(pipeline.Scoring), cfg.Threshold)
	if pipeline.Scoring == engine.ScoringBubble {
		rep.Backend = "none"
	}

	entries, err := pipeline.Batch(ctx, src, cfg.DPI, cfg.Workers)
	if err != nil {
		return err
	}
	rep.Entries = entries

	reportPath := cfg.ReportPath
	if reportPath == "" {
		reportPath = report.GeneratePath(report.DefaultDir)
	}
	if err := report.Write(rep, reportPath); err != nil {
		return err
	}

	fmt.Printf("[+++] %s\n", rep.Summary())
	fmt.Printf("[+++] Отчет: %s\n", reportPath)
	return nil
}

func isProfileFile(value string) bool {
	ext := strings.ToLower(filepath.Ext(value))
	return ext == ".yaml" || ext == ".yml"
}
