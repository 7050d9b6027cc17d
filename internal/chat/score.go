package chat

import "math"

// DefaultThreshold is the confidence at which an image counts as a conversation.
const DefaultThreshold = 0.8

// Scorer turns classified messages into a confidence in [0, 1].
type Scorer interface {
	Score(messages []Message) float64
}

// Weights are the coefficients of the alternation score.
type Weights struct {
	Alternation float64 `yaml:"alternation"`
	Swap        float64 `yaml:"swap"`
	Message     float64 `yaml:"message"`
}

var (
	// TextWeights fit messages clustered from OCR text.
	TextWeights = Weights{Alternation: 0.3, Swap: 0.06, Message: 0.06}
	// BubbleWeights fit regions found by the bubble detector, which are fewer
	// and cleaner than OCR messages.
	BubbleWeights = Weights{Alternation: 0.3, Swap: 0.1, Message: 0.1}
)

// Alternation counts side changes between consecutive messages. A single
// back-and-forth is not enough: alternates needs more than one swap.
func Alternation(messages []Message) (swaps int, alternates bool) {
	if len(messages) < 2 {
		return 0, false
	}
	last := messages[0].Side
	for _, m := range messages[1:] {
		if m.Side != last {
			last = m.Side
			swaps++
		}
	}
	return swaps, swaps > 1
}

// AlternationScorer scores by how often the conversation switches sides.
type AlternationScorer struct {
	Weights       Weights
	ExcludeMiddle bool
}

// NewAlternationScorer creates an alternation scorer with the given weights.
func NewAlternationScorer(w Weights) *AlternationScorer {
	return &AlternationScorer{Weights: w}
}

func (s *AlternationScorer) Score(messages []Message) float64 {
	if s.ExcludeMiddle {
		messages = withoutMiddle(messages)
	}
	swaps, alternates := Alternation(messages)

	score := s.Weights.Swap*float64(swaps) + s.Weights.Message*float64(len(messages))
	if alternates {
		score += s.Weights.Alternation
	}
	return clamp(score)
}

const (
	insideRegionScore  = 1.0
	outsideRegionScore = 0.20
)

// RegionScorer scores by how many side messages sit inside a detected bubble.
type RegionScorer struct {
	Regions []Box
	Inside  float64
	Outside float64
}

// NewRegionScorer creates a region scorer with the reference contributions.
func NewRegionScorer(regions []Box) *RegionScorer {
	return &RegionScorer{
		Regions: regions,
		Inside:  insideRegionScore,
		Outside: outsideRegionScore,
	}
}

func (s *RegionScorer) Score(messages []Message) float64 {
	var sum float64
	var n int
	for _, m := range messages {
		if m.Side == SideMiddle {
			continue
		}
		n++
		if s.contained(m.Bounds) {
			sum += s.Inside
		} else {
			sum += s.Outside
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(math.Round(sum/float64(n)*100) / 100)
}

func (s *RegionScorer) contained(b Box) bool {
	for _, r := range s.Regions {
		if r.ContainsStrict(b) {
			return true
		}
	}
	return false
}

// Decision is the caller-level verdict for one image.
type Decision struct {
	Conversation bool
	Confidence   float64
	Threshold    float64
}

// Decide applies the threshold to a confidence.
func Decide(confidence, threshold float64) Decision {
	return Decision{
		Conversation: confidence >= threshold,
		Confidence:   confidence,
		Threshold:    threshold,
	}
}

func (d Decision) String() string {
	if d.Conversation {
		return "conversation"
	}
	return "not conversation"
}

func withoutMiddle(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Side != SideMiddle {
			out = append(out, m)
		}
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
