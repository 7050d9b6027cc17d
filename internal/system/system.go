package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// InputExtensions - типы файлов, которые берет пакетный запуск.
var InputExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif", ".pdf"}

func InitResourceLimits(logger logrus.FieldLogger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		logger.WithError(err).Warn("[!] Не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.WithError(err).Warn("[!] Не удалось установить лимит файлов")
		return
	}
	logger.Debugf("[*] Системный лимит открытых файлов увеличен до %d", rLimit.Cur)
}

// DefaultWorkers возвращает число логических ядер (gopsutil),
// при ошибке - runtime.NumCPU().
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// MemoryStatus описывает память хоста для стартового сообщения.
func MemoryStatus() (string, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.1f GiB free of %.1f GiB (%.0f%% used)",
		float64(vm.Available)/(1<<30), float64(vm.Total)/(1<<30), vm.UsedPercent), nil
}

// HasExtension проверяет расширение файла без учета регистра.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestImage возвращает самый свежий скриншот или PDF в path.
// Если указан файл, поиск идет в его директории.
func FindLatestImage(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	searchDir := path
	if !fi.IsDir() {
		searchDir = filepath.Dir(path)
	}

	files, err := os.ReadDir(searchDir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !HasExtension(f.Name(), InputExtensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(searchDir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено изображений", searchDir)
	}

	return latestFile, nil
}
