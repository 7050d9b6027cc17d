package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/ivlev/chatdetect/internal/chat"
)

// Input is one screenshot handed to an OCR backend.
type Input struct {
	Name  string
	Image image.Image
}

// Engine turns a screenshot into a normalized page of text blocks.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (*chat.Page, error)
}

// Options carries backend credentials and tuning.
type Options struct {
	YandexAPIKey      string
	YandexFolderID    string
	TesseractLangs    string
	ReplayDir         string
	GoogleCredentials string
	Logger            logrus.FieldLogger
}

// NewEngine creates the backend registered under name.
func NewEngine(ctx context.Context, name string, opts Options) (Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	switch name {
	case "yandex", "":
		y := NewYandex(opts.YandexAPIKey, opts.YandexFolderID)
		y.Logger = logger
		return y, nil
	case "tesseract":
		return NewTesseract(opts.TesseractLangs), nil
	case "google":
		var clientOpts []option.ClientOption
		if opts.GoogleCredentials != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(opts.GoogleCredentials))
		}
		return NewGoogle(ctx, clientOpts...)
	case "replay":
		return NewReplay(opts.ReplayDir), nil
	default:
		return nil, fmt.Errorf("unknown OCR backend: %s", name)
	}
}

func frameOf(img image.Image) chat.Frame {
	b := img.Bounds()
	return chat.Frame{Width: b.Dx(), Height: b.Dy()}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
