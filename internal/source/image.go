package source

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	perrors "github.com/ivlev/chatdetect/internal/errors"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true, ".gif": true,
}

func isImageExt(ext string) bool {
	return imageExts[strings.ToLower(ext)]
}

// ImageSource - один скриншот или все скриншоты директории,
// отсортированные по имени.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && isImageExt(filepath.Ext(entry.Name())) {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			return nil, fmt.Errorf("в папке %s не найдено изображений", path)
		}
	} else {
		paths = []string{path}
	}

	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) PageCount() int {
	return len(s.paths)
}

func (s *ImageSource) Name(index int) string {
	return filepath.Base(s.paths[index])
}

func (s *ImageSource) GetPageDimensions(index int) (int, int, error) {
	f, err := os.Open(s.paths[index])
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, perrors.NewDecodeError(s.paths[index], err)
	}
	return cfg.Width, cfg.Height, nil
}

// RenderPage декодирует скриншот; dpi важен только для PDF.
func (s *ImageSource) RenderPage(index int, dpi int) (image.Image, error) {
	data, err := os.ReadFile(s.paths[index])
	if err != nil {
		return nil, err
	}
	return Decode(s.paths[index], data)
}

func (s *ImageSource) Close() error {
	return nil
}

// Decode декодирует загруженный или сохраненный скриншот любого поддерживаемого формата.
func Decode(name string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, perrors.NewDecodeError(name, err)
	}
	return img, nil
}
