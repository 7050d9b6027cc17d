package analyzer

import (
	"image"

	"github.com/ivlev/chatdetect/internal/chat"
)

// Detector finds chat bubbles in a screenshot. textBoxes are OCR boxes in
// source coordinates; a detector may use them to ignore text outside bubbles.
type Detector interface {
	Detect(img image.Image, textBoxes []chat.Box) ([]chat.Region, error)
}
