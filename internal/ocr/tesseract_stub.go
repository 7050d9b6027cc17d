//go:build !cgo

package ocr

import (
	"context"
	"errors"

	"github.com/ivlev/chatdetect/internal/chat"
)

var errNoTesseract = errors.New("tesseract backend needs a cgo build with libtesseract")

type Tesseract struct{}

func NewTesseract(string) *Tesseract { return &Tesseract{} }

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(context.Context, Input) (*chat.Page, error) {
	return nil, errNoTesseract
}
