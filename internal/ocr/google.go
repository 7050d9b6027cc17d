package ocr

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/ivlev/chatdetect/internal/chat"
)

// VisionClient is the part of vision.ImageAnnotatorClient used here.
// It exists so tests can replace the remote client.
type VisionClient interface {
	DetectDocumentText(ctx context.Context, image *visionpb.Image, imageContext *visionpb.ImageContext, opts ...gax.CallOption) (*visionpb.TextAnnotation, error)
}

// Google runs document text detection on Google Cloud Vision.
type Google struct {
	Client VisionClient
}

// NewGoogle connects with application default credentials.
func NewGoogle(ctx context.Context, opts ...option.ClientOption) (*Google, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &Google{Client: client}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Recognize(ctx context.Context, in Input) (*chat.Page, error) {
	data, err := encodePNG(in.Image)
	if err != nil {
		return nil, err
	}
	annotation, err := g.Client.DetectDocumentText(ctx, &visionpb.Image{Content: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}

	page := PageFromAnnotation(annotation)
	if page.Frame.Validate() != nil {
		page.Frame = frameOf(in.Image)
	}
	return page, nil
}

// PageFromAnnotation maps Vision blocks to text blocks, one line per paragraph.
// Only the first page is used: a screenshot has one.
func PageFromAnnotation(annotation *visionpb.TextAnnotation) *chat.Page {
	pages := annotation.GetPages()
	if len(pages) == 0 {
		return &chat.Page{}
	}
	vp := pages[0]

	page := &chat.Page{
		Frame:    chat.Frame{Width: int(vp.GetWidth()), Height: int(vp.GetHeight())},
		FullText: annotation.GetText(),
	}
	for _, block := range vp.GetBlocks() {
		box, ok := polyBox(block.GetBoundingBox())
		if !ok {
			continue
		}
		var lines []string
		for _, paragraph := range block.GetParagraphs() {
			words := make([]string, 0, len(paragraph.GetWords()))
			for _, word := range paragraph.GetWords() {
				var sb strings.Builder
				for _, symbol := range word.GetSymbols() {
					sb.WriteString(symbol.GetText())
				}
				words = append(words, sb.String())
			}
			lines = append(lines, strings.Join(words, " "))
		}
		page.Blocks = append(page.Blocks, chat.TextBlock{
			Text:  strings.Join(lines, "\n"),
			Lines: lines,
			Box:   box,
		})
	}
	return page
}

func polyBox(poly *visionpb.BoundingPoly) (chat.Box, bool) {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return chat.Box{}, false
	}
	first := vertices[0]
	b := chat.NewBox(int(first.GetX()), int(first.GetY()), int(first.GetX()), int(first.GetY()))
	for _, v := range vertices[1:] {
		x, y := int(v.GetX()), int(v.GetY())
		b = b.Union(chat.NewBox(x, y, x, y))
	}
	return b, true
}
