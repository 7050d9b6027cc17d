//go:build cgo

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/draw"

	"github.com/ivlev/chatdetect/internal/chat"
)

// Tesseract runs the local Tesseract engine and reports one block per word.
type Tesseract struct {
	Languages []string
	Mode      gosseract.PageSegMode
}

func NewTesseract(langs string) *Tesseract {
	if langs == "" {
		langs = "eng+rus"
	}
	return &Tesseract{
		Languages: strings.Split(langs, "+"),
		Mode:      gosseract.PSM_SINGLE_COLUMN,
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

func (t *Tesseract) Recognize(ctx context.Context, in Input) (*chat.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Tesseract reads a gray channel more reliably than color.
	b := in.Image.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, in.Image, b.Min, draw.Src)

	data, err := encodePNG(gray)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Languages...); err != nil {
		return nil, fmt.Errorf("tesseract languages: %w", err)
	}
	if err := client.SetPageSegMode(t.Mode); err != nil {
		return nil, fmt.Errorf("tesseract page mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	return pageFromWords(frameOf(in.Image), boxes), nil
}

// pageFromWords keeps word boxes as reported: the encoded image starts at 0,0.
func pageFromWords(frame chat.Frame, boxes []gosseract.BoundingBox) *chat.Page {
	page := &chat.Page{Frame: frame, Blocks: make([]chat.TextBlock, 0, len(boxes))}
	words := make([]string, 0, len(boxes))
	for _, w := range boxes {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		r := w.Box
		page.Blocks = append(page.Blocks, chat.TextBlock{
			Text: text,
			Box:  chat.NewBox(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y),
		})
		words = append(words, text)
	}
	page.FullText = strings.Join(words, " ")
	return page
}
