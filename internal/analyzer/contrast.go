package analyzer

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"github.com/ivlev/chatdetect/internal/chat"
	"github.com/ivlev/chatdetect/internal/system"
)

// ContrastDetector finds bubbles as closed edge contours: Sobel edges,
// OCR text masked out, dilation, hole filling and connected components.
type ContrastDetector struct {
	MaxSide           int     // larger images are downscaled to this side
	EdgeFraction      float64 // side zone, share of the width
	ShrinkFactor      float64 // relaxes the opposite-side limit
	MinWidthFraction  float64
	MinHeightFraction float64
	MaxComponents     int // more components than this means a photo, not a chat
	DilateKernel      int
	DilateIterations  int
}

// NewContrastDetector creates a contrast-based detector with default settings
func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MaxSide:           1300,
		EdgeFraction:      0.18,
		ShrinkFactor:      1.7,
		MinWidthFraction:  0.10,
		MinHeightFraction: 0.039,
		MaxComponents:     1499,
		DilateKernel:      3,
		DilateIterations:  1,
	}
}

// Detect returns the side bubbles in source coordinates, top to bottom.
func (d *ContrastDetector) Detect(img image.Image, textBoxes []chat.Box) ([]chat.Region, error) {
	src := img.Bounds()
	if src.Empty() {
		return nil, chat.ErrInvalidFrame
	}

	work, scale := d.downscale(img)
	defer system.PutImage(work)

	gray := toGrayscale(work)
	edges := sobelEdges(gray, edgeThreshold(meanBrightness(gray)))
	for _, b := range textBoxes {
		edges.clear(scaleBox(b, 1/scale))
	}
	edges = edges.dilate(d.DilateKernel, d.DilateIterations)
	edges.fillHoles()

	components := edges.components()
	if len(components) > d.MaxComponents {
		return []chat.Region{}, nil
	}

	w, h := float64(edges.w), float64(edges.h)
	minW, minH := w*d.MinWidthFraction, h*d.MinHeightFraction
	leftEdge := w * d.EdgeFraction
	relaxedLeft := w * d.EdgeFraction / d.ShrinkFactor
	rightEdge := w * (1 - d.EdgeFraction)
	relaxedRight := w * (1 - d.EdgeFraction/d.ShrinkFactor)

	regions := []chat.Region{}
	for _, r := range components {
		x1, x2 := float64(r.Min.X), float64(r.Max.X)
		if float64(r.Dx()) <= minW || float64(r.Dy()) <= minH {
			continue
		}

		var side chat.Side
		switch {
		case x1 <= leftEdge && x2 < relaxedRight:
			side = chat.SideLeft
		case x2 >= rightEdge && x1 > relaxedLeft:
			side = chat.SideRight
		default:
			continue
		}

		box := chat.NewBox(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
		regions = append(regions, chat.Region{Box: scaleBox(box, scale), Side: side})
	}
	return regions, nil
}

// downscale copies img into a pooled RGBA at origin 0,0, shrinking it so its
// longer side is at most MaxSide. scale maps work coordinates back to source.
func (d *ContrastDetector) downscale(img image.Image) (*image.RGBA, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if longest := max(w, h); d.MaxSide > 0 && longest > d.MaxSide {
		scale = float64(longest) / float64(d.MaxSide)
		w = max(1, int(float64(w)/scale))
		h = max(1, int(float64(h)/scale))
	}

	dst := system.GetImage(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	}
	return dst, scale
}

func scaleBox(b chat.Box, f float64) chat.Box {
	return chat.NewBox(
		int(math.Round(float64(b.X1)*f)),
		int(math.Round(float64(b.Y1)*f)),
		int(math.Round(float64(b.X2)*f)),
		int(math.Round(float64(b.Y2)*f)),
	)
}

func toGrayscale(img *image.RGBA) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.SetGray(x, y, color.GrayModel.Convert(img.RGBAAt(x, y)).(color.Gray))
		}
	}
	return gray
}

func meanBrightness(gray *image.Gray) float64 {
	if len(gray.Pix) == 0 {
		return 0
	}
	var sum int
	for _, p := range gray.Pix {
		sum += int(p)
	}
	return float64(sum) / float64(len(gray.Pix)) / 255
}

// edgeThreshold lowers the gradient threshold for very light screenshots,
// where bubble borders are faint.
func edgeThreshold(brightness float64) float64 {
	switch {
	case brightness > 0.96:
		return 12
	case brightness > 0.93:
		return 20
	default:
		return 30
	}
}

// bitmap is a binary mask over a w×h grid.
type bitmap struct {
	w, h int
	px   []bool
}

func newBitmap(w, h int) *bitmap {
	return &bitmap{w: w, h: h, px: make([]bool, w*h)}
}

func (m *bitmap) at(x, y int) bool { return m.px[y*m.w+x] }

func (m *bitmap) set(x, y int) { m.px[y*m.w+x] = true }

// clear unsets every pixel inside b, clamped to the grid.
func (m *bitmap) clear(b chat.Box) {
	x1, y1 := max(b.X1, 0), max(b.Y1, 0)
	x2, y2 := min(b.X2, m.w-1), min(b.Y2, m.h-1)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			m.px[y*m.w+x] = false
		}
	}
}

func sobelEdges(gray *image.Gray, threshold float64) *bitmap {
	b := gray.Bounds()
	m := newBitmap(b.Dx(), b.Dy())
	p := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x])
	}

	for y := 1; y < m.h-1; y++ {
		for x := 1; x < m.w-1; x++ {
			gx := -p(x-1, y-1) + p(x+1, y-1) - 2*p(x-1, y) + 2*p(x+1, y) - p(x-1, y+1) + p(x+1, y+1)
			gy := -p(x-1, y-1) - 2*p(x, y-1) - p(x+1, y-1) + p(x-1, y+1) + 2*p(x, y+1) + p(x+1, y+1)
			if math.Sqrt(gx*gx+gy*gy) > threshold {
				m.set(x, y)
			}
		}
	}
	return m
}

// dilate grows set pixels by a square kernel to close gaps in borders.
func (m *bitmap) dilate(kernel, iterations int) *bitmap {
	half := kernel / 2
	cur := m
	for iter := 0; iter < iterations; iter++ {
		next := newBitmap(m.w, m.h)
		for y := 0; y < m.h; y++ {
			for x := 0; x < m.w; x++ {
				if !cur.at(x, y) {
					continue
				}
				for ky := max(y-half, 0); ky <= min(y+half, m.h-1); ky++ {
					for kx := max(x-half, 0); kx <= min(x+half, m.w-1); kx++ {
						next.set(kx, ky)
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// fillHoles sets every unset pixel that is not reachable from the border.
func (m *bitmap) fillHoles() {
	outside := make([]bool, len(m.px))
	var stack []int
	push := func(x, y int) {
		i := y*m.w + x
		if !m.px[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < m.w; x++ {
		push(x, 0)
		push(x, m.h-1)
	}
	for y := 0; y < m.h; y++ {
		push(0, y)
		push(m.w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%m.w, i/m.w
		if x > 0 {
			push(x-1, y)
		}
		if x < m.w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < m.h-1 {
			push(x, y+1)
		}
	}

	for i := range m.px {
		if !outside[i] {
			m.px[i] = true
		}
	}
}

// components returns the bounding rectangles of 4-connected set regions in
// row-major order of their first pixel.
func (m *bitmap) components() []image.Rectangle {
	visited := make([]bool, len(m.px))
	var rects []image.Rectangle

	for start := range m.px {
		if !m.px[start] || visited[start] {
			continue
		}
		minX, minY := start%m.w, start/m.w
		maxX, maxY := minX, minY

		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.w, i/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				j := ny*m.w + nx
				if m.px[j] && !visited[j] {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
		rects = append(rects, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return rects
}
