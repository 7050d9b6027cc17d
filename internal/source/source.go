package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"

	perrors "github.com/ivlev/chatdetect/internal/errors"
)

// Source - упорядоченный набор скриншотов.
type Source interface {
	PageCount() int
	// Name - имя скриншота для логов, отчета и записей replay.
	Name(index int) string
	GetPageDimensions(index int) (width, height int, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open выбирает источник по пути: PDF, файл изображения или папка.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return NewImageSource(path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return NewFitzPDFSource(path)
	case isImageExt(ext):
		return NewImageSource(path)
	default:
		return nil, perrors.NewUnsupportedFormatError(path, ext)
	}
}

// FitzPDFSource реализует Source через go-fitz: страница PDF = один скриншот.
type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) Name(index int) string {
	base := filepath.Base(f.path)
	return fmt.Sprintf("%s-page%d", strings.TrimSuffix(base, filepath.Ext(base)), index+1)
}

func (f *FitzPDFSource) GetPageDimensions(index int) (int, int, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return rect.Dx(), rect.Dy(), nil
}

// RenderPage открывает свой документ на каждый вызов:
// fitz.Document нельзя использовать из нескольких горутин.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
