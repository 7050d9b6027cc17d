package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/chatdetect/internal/analyzer"
	"github.com/ivlev/chatdetect/internal/chat"
	"github.com/ivlev/chatdetect/internal/config"
	perrors "github.com/ivlev/chatdetect/internal/errors"
	"github.com/ivlev/chatdetect/internal/ocr"
	"github.com/ivlev/chatdetect/internal/report"
)

// Scoring - способ расчета уверенности.
type Scoring string

const (
	// ScoringAlternation - по чередованию сторон сообщений OCR.
	ScoringAlternation Scoring = "alternation"
	// ScoringRegion - по попаданию сообщений OCR в пузыри.
	ScoringRegion Scoring = "region"
	// ScoringAuto - region, если пузыри найдены, иначе alternation.
	ScoringAuto Scoring = "auto"
	// ScoringBubble - без OCR, по самим пузырям.
	ScoringBubble Scoring = "bubble"
)

func ParseScoring(name string) (Scoring, error) {
	switch s := Scoring(name); s {
	case ScoringAlternation, ScoringRegion, ScoringAuto, ScoringBubble:
		return s, nil
	case "":
		return ScoringAuto, nil
	default:
		return "", fmt.Errorf("unknown scoring mode: %s", name)
	}
}

// Pipeline классифицирует один скриншот за вызов. Состояния между
// скриншотами нет; безопасен для горутин, если безопасны OCR и детектор.
type Pipeline struct {
	OCR       ocr.Engine
	Detector  analyzer.Detector
	Profile   config.Profile
	Scoring   Scoring
	Threshold float64
	Logger    logrus.FieldLogger
}

func (p *Pipeline) validate() error {
	if p.Scoring != ScoringBubble && p.OCR == nil {
		return fmt.Errorf("scoring %s needs an OCR backend", p.Scoring)
	}
	if (p.Scoring == ScoringRegion || p.Scoring == ScoringBubble) && p.Detector == nil {
		return fmt.Errorf("scoring %s needs a bubble detector", p.Scoring)
	}
	return nil
}

// Process классифицирует один скриншот. Ошибки - ProcessingError.
func (p *Pipeline) Process(ctx context.Context, in ocr.Input) (*report.Entry, error) {
	start := time.Now()
	if err := p.validate(); err != nil {
		return nil, err
	}
	params, err := p.Profile.Params()
	if err != nil {
		return nil, err
	}

	bounds := in.Image.Bounds()
	entry := &report.Entry{
		Input:  in.Name,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	if p.Scoring == ScoringBubble {
		err = p.scoreBubbles(entry, in)
	} else {
		err = p.scoreText(ctx, entry, in, params)
	}
	if err != nil {
		return nil, err
	}

	entry.SetDecision(p.Threshold)
	entry.SetElapsed(time.Since(start))

	p.logger().WithFields(logrus.Fields{
		"input":      in.Name,
		"messages":   len(entry.Messages),
		"regions":    len(entry.Regions),
		"confidence": entry.Confidence,
		"elapsed":    entry.Elapsed,
	}).Info(entry.Decision)
	return entry, nil
}

func (p *Pipeline) scoreText(ctx context.Context, entry *report.Entry, in ocr.Input, params chat.Params) error {
	page, err := p.OCR.Recognize(ctx, in)
	if err != nil {
		return perrors.NewOCRFailedError(in.Name, p.OCR.Name(), err)
	}

	var regions []chat.Region
	if p.Detector != nil && p.Scoring != ScoringAlternation && !page.Empty() {
		regions, err = p.Detector.Detect(in.Image, page.Boxes())
		if err != nil {
			return perrors.NewDetectorFailedError(in.Name, "bubble", err)
		}
	}

	var scorer chat.Scorer = chat.NewAlternationScorer(p.Profile.Weights)
	if p.Scoring == ScoringRegion || (p.Scoring == ScoringAuto && len(regions) > 0) {
		scorer = chat.NewRegionScorer(chat.RegionBoxes(regions))
	}

	result, err := chat.Analyze(*page, params, scorer)
	if err != nil {
		return perrors.NewInvalidGeometryError(in.Name, err)
	}

	entry.FullText = result.FullText
	entry.Messages = result.Messages
	entry.Regions = regions
	entry.SwapCount = result.SwapCount
	entry.Alternates = result.Alternates
	entry.Confidence = result.Confidence
	return nil
}

func (p *Pipeline) scoreBubbles(entry *report.Entry, in ocr.Input) error {
	regions, err := p.Detector.Detect(in.Image, nil)
	if err != nil {
		return perrors.NewDetectorFailedError(in.Name, "bubble", err)
	}

	messages := chat.MessagesFromRegions(regions)
	swaps, alternates := chat.Alternation(messages)

	entry.Messages = messages
	entry.Regions = regions
	entry.SwapCount = swaps
	entry.Alternates = alternates
	entry.Confidence = chat.NewAlternationScorer(p.Profile.Weights).Score(messages)
	return nil
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Logger
}

// failedEntry - запись для скриншота, который не удалось обработать.
func failedEntry(name string, err error, elapsed time.Duration) *report.Entry {
	var pe *perrors.ProcessingError
	if !errors.As(err, &pe) {
		pe = perrors.NewDecodeError(name, err)
	}
	entry := &report.Entry{
		Input:    name,
		Messages: []chat.Message{},
		Decision: "error",
		Error:    pe.ToMap(),
	}
	entry.SetElapsed(elapsed)
	return entry
}
