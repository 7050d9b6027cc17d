package chat

import (
	"fmt"
	"strings"
)

// TimestampPolicy decides what happens to a lone "HH:MM" block that sits
// right under the message being built.
type TimestampPolicy int

const (
	// TimestampMerge treats the timestamp like any other block.
	TimestampMerge TimestampPolicy = iota
	// TimestampSkip ignores it: neither its text nor its box joins the message.
	TimestampSkip
)

func (p TimestampPolicy) String() string {
	if p == TimestampSkip {
		return "skip"
	}
	return "merge"
}

// ParseTimestampPolicy parses "merge" or "skip".
func ParseTimestampPolicy(name string) (TimestampPolicy, error) {
	switch name {
	case "merge", "":
		return TimestampMerge, nil
	case "skip":
		return TimestampSkip, nil
	default:
		return TimestampMerge, fmt.Errorf("unknown timestamp policy: %s", name)
	}
}

const (
	DefaultEdgeFraction      = 0.19
	DefaultShrinkFactor      = 1.5
	DefaultProximityFraction = 0.02
)

// Params tunes the clusterer.
type Params struct {
	// EdgeFraction is the share of the width, measured from either edge,
	// in which a block's near corner must sit to belong to that side.
	EdgeFraction float64
	// ShrinkFactor divides EdgeFraction for the relaxed zone tests.
	ShrinkFactor float64
	// ProximityFraction is the share of the height below a message within
	// which the next block still continues it.
	ProximityFraction float64
	Timestamps        TimestampPolicy
	// DropMiddle discards every finished middle message, not only wide ones.
	DropMiddle bool
}

// DefaultParams returns the baseline tuning.
func DefaultParams() Params {
	return Params{
		EdgeFraction:      DefaultEdgeFraction,
		ShrinkFactor:      DefaultShrinkFactor,
		ProximityFraction: DefaultProximityFraction,
		Timestamps:        TimestampMerge,
	}
}

// Validate checks the parameters are usable.
func (p Params) Validate() error {
	if p.EdgeFraction <= 0 || p.EdgeFraction >= 0.5 {
		return fmt.Errorf("edge fraction must be in (0, 0.5), got %v", p.EdgeFraction)
	}
	if p.ShrinkFactor < 1 {
		return fmt.Errorf("shrink factor must be >= 1, got %v", p.ShrinkFactor)
	}
	if p.ProximityFraction <= 0 {
		return fmt.Errorf("proximity fraction must be positive, got %v", p.ProximityFraction)
	}
	return nil
}

// accumulator is the message being built. The zero value is empty.
type accumulator struct {
	parts  []string
	bounds Box
	side   Side
	blocks []int
}

func (a *accumulator) empty() bool {
	return len(a.blocks) == 0
}

func (a *accumulator) start(index int, block TextBlock, side Side) {
	a.parts = []string{block.Content()}
	a.bounds = block.Box
	a.side = side
	a.blocks = []int{index}
}

func (a *accumulator) merge(index int, block TextBlock) {
	a.parts = append(a.parts, block.Content())
	a.bounds = a.bounds.Union(block.Box)
	a.blocks = append(a.blocks, index)
}

func (a *accumulator) message() Message {
	return Message{
		Text:   strings.Join(a.parts, " "),
		Bounds: a.bounds,
		Side:   a.side,
		Blocks: a.blocks,
	}
}

// promoteToRight is the only side change allowed after a message has started.
// A message that grew rightward from the ambiguous centre becomes a right
// message once its right edge reaches the right zone and its left edge is
// clear of the relaxed left zone. A left message is never demoted.
func promoteToRight(current Side, bounds Box, z Zones) Side {
	if current == SideLeft {
		return current
	}
	if float64(bounds.X2) >= z.RightEdge && float64(bounds.X1) >= z.RelaxedLeft {
		return SideRight
	}
	return current
}

type clusterer struct {
	params Params
	zones  Zones
	gap    float64
	out    []Message
}

// keep reports whether a finished message belongs in the output.
func (c *clusterer) keep(m Message) bool {
	if m.Side != SideMiddle {
		return true
	}
	if c.params.DropMiddle {
		return false
	}
	return !c.zones.Spans(m.Bounds)
}

func (c *clusterer) finish(acc *accumulator) {
	if acc.empty() {
		return
	}
	if m := acc.message(); c.keep(m) {
		c.out = append(c.out, m)
	}
	*acc = accumulator{}
}

func (c *clusterer) continues(acc *accumulator, block TextBlock) bool {
	return !acc.empty() && float64(block.Box.Y1) < float64(acc.bounds.Y2)+c.gap
}

// Cluster groups ordered OCR blocks into messages in a single pass.
func Cluster(blocks []TextBlock, frame Frame, params Params) ([]Message, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	c := &clusterer{
		params: params,
		zones:  NewZones(frame.Width, params.EdgeFraction, params.ShrinkFactor),
		gap:    float64(frame.Height) * params.ProximityFraction,
		out:    []Message{},
	}

	var acc accumulator
	for i, block := range blocks {
		if block.Blank() {
			continue
		}
		if err := block.Box.Validate(); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}

		near := c.continues(&acc, block)
		if near && params.Timestamps == TimestampSkip && block.IsTimestamp() {
			continue
		}

		candidate := c.zones.Candidate(block.Box)
		switch {
		case acc.empty():
			acc.start(i, block, candidate)
		case near:
			acc.merge(i, block)
			if candidate == SideRight {
				acc.side = promoteToRight(acc.side, acc.bounds, c.zones)
			}
		default:
			c.finish(&acc)
			acc.start(i, block, candidate)
		}
	}
	c.finish(&acc)

	return c.out, nil
}
