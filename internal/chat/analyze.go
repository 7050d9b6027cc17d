package chat

import "strings"

// Result is the outcome of analysing one OCR page.
type Result struct {
	FullText   string
	Messages   []Message
	SwapCount  int
	Alternates bool
	Confidence float64
}

// Analyze clusters a page and scores the resulting messages.
// A page without text is a normal outcome, even when OCR reported no frame:
// the sentinel full text, no messages and zero confidence.
func Analyze(page Page, params Params, scorer Scorer) (*Result, error) {
	if page.Empty() {
		return &Result{FullText: NoConversationText, Messages: []Message{}}, nil
	}
	if err := page.Frame.Validate(); err != nil {
		return nil, err
	}

	messages, err := Cluster(page.Blocks, page.Frame, params)
	if err != nil {
		return nil, err
	}
	swaps, alternates := Alternation(messages)

	fullText := page.FullText
	if fullText == "" {
		fullText = joinBlocks(page.Blocks)
	}

	return &Result{
		FullText:   fullText,
		Messages:   messages,
		SwapCount:  swaps,
		Alternates: alternates,
		Confidence: scorer.Score(messages),
	}, nil
}

func joinBlocks(blocks []TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if text := b.Content(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
