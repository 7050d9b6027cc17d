package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrame is returned for a frame with a zero or negative dimension.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrInvalidBox is returned for a box whose far corner precedes its near corner.
	ErrInvalidBox = errors.New("invalid box")
)

// Box is an axis-aligned rectangle in pixel space, corners inclusive of X1/Y1.
type Box struct {
	X1 int `yaml:"x1" json:"x1"`
	Y1 int `yaml:"y1" json:"y1"`
	X2 int `yaml:"x2" json:"x2"`
	Y2 int `yaml:"y2" json:"y2"`
}

// NewBox creates a box from two corners.
func NewBox(x1, y1, x2, y2 int) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// BoxFromRect creates a box from the left/top/width/height form used by Tesseract.
func BoxFromRect(left, top, width, height int) Box {
	return Box{X1: left, Y1: top, X2: left + width, Y2: top + height}
}

// Validate reports whether the corners are ordered.
func (b Box) Validate() error {
	if b.X2 < b.X1 || b.Y2 < b.Y1 {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrInvalidBox, b.X1, b.Y1, b.X2, b.Y2)
	}
	return nil
}

// Width returns the horizontal extent.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height returns the vertical extent.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Union returns the smallest box covering both boxes.
func (b Box) Union(other Box) Box {
	return Box{
		X1: min(b.X1, other.X1),
		Y1: min(b.Y1, other.Y1),
		X2: max(b.X2, other.X2),
		Y2: max(b.Y2, other.Y2),
	}
}

// ContainsStrict reports whether inner lies inside b without touching any edge.
func (b Box) ContainsStrict(inner Box) bool {
	return inner.X1 > b.X1 && inner.X2 < b.X2 && inner.Y1 > b.Y1 && inner.Y2 < b.Y2
}

// Frame is the pixel size of the analysed image.
type Frame struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Validate rejects frames that would make zoning divide by zero.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	return nil
}

// Zones holds the horizontal thresholds derived from a frame width.
type Zones struct {
	LeftEdge     float64
	RightEdge    float64
	RelaxedLeft  float64
	RelaxedRight float64
}

// NewZones computes zone thresholds for the given width.
// shrinkFactor tightens the edge fraction for the relaxed (ambiguous-zone) tests.
func NewZones(width int, edgeFraction, shrinkFactor float64) Zones {
	w := float64(width)
	relaxed := edgeFraction / shrinkFactor
	return Zones{
		LeftEdge:     w * edgeFraction,
		RightEdge:    w * (1 - edgeFraction),
		RelaxedLeft:  w * relaxed,
		RelaxedRight: w * (1 - relaxed),
	}
}

// Candidate classifies a box by where its near corner sits.
func (z Zones) Candidate(b Box) Side {
	switch {
	case float64(b.X1) < z.LeftEdge:
		return SideLeft
	case float64(b.X2) > z.RightEdge:
		return SideRight
	default:
		return SideMiddle
	}
}

// Spans reports whether a box reaches into both relaxed edge zones at once,
// which is how full-width headers and timestamps look.
func (z Zones) Spans(b Box) bool {
	return float64(b.X1) <= z.RelaxedLeft && float64(b.X2) >= z.RelaxedRight
}
