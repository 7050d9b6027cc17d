package chat

import (
	"regexp"
	"strings"
)

// NoConversationText replaces the full text of a page on which OCR found nothing.
const NoConversationText = "There is no conversation on image"

var timestampPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// TextBlock is one OCR-detected unit of text with its box.
type TextBlock struct {
	Text  string
	Lines []string
	Box   Box
}

// lines returns the block's lines, splitting Text when the backend did not
// report them separately.
func (b TextBlock) lines() []string {
	if len(b.Lines) > 0 {
		return b.Lines
	}
	return strings.Split(b.Text, "\n")
}

// Content returns the block text as a single space-separated line.
func (b TextBlock) Content() string {
	parts := make([]string, 0, len(b.Lines)+1)
	for _, line := range b.lines() {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// Blank reports whether the block carries no text at all.
func (b TextBlock) Blank() bool {
	return b.Content() == ""
}

// IsTimestamp reports whether the block is a lone H:MM or HH:MM line.
func (b TextBlock) IsTimestamp() bool {
	lines := b.lines()
	return len(lines) == 1 && timestampPattern.MatchString(strings.TrimSpace(lines[0]))
}

// Page is the normalized result of one OCR pass.
type Page struct {
	Frame    Frame
	FullText string
	Blocks   []TextBlock
}

// Empty reports whether OCR found no text on the page.
func (p Page) Empty() bool {
	if strings.TrimSpace(p.FullText) != "" {
		return false
	}
	for _, b := range p.Blocks {
		if !b.Blank() {
			return false
		}
	}
	return true
}

// Boxes returns the boxes of all non-blank blocks.
func (p Page) Boxes() []Box {
	boxes := make([]Box, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if !b.Blank() {
			boxes = append(boxes, b.Box)
		}
	}
	return boxes
}

// Message is a cluster of blocks judged to be one chat bubble.
type Message struct {
	Text   string `yaml:"text" json:"text"`
	Bounds Box    `yaml:"bounds" json:"bounds"`
	Side   Side   `yaml:"side" json:"side"`
	// Blocks holds the input indices of the constituent blocks.
	Blocks []int `yaml:"blocks,omitempty" json:"blocks,omitempty"`
}

// Region is a visually detected bubble.
type Region struct {
	Box  Box  `yaml:"box" json:"box"`
	Side Side `yaml:"side" json:"side"`
}

// MessagesFromRegions turns bubble regions into text-less messages so that a
// detector-only run can be scored by alternation.
func MessagesFromRegions(regions []Region) []Message {
	messages := make([]Message, 0, len(regions))
	for _, r := range regions {
		messages = append(messages, Message{Bounds: r.Box, Side: r.Side})
	}
	return messages
}

// RegionBoxes extracts the boxes of the regions.
func RegionBoxes(regions []Region) []Box {
	boxes := make([]Box, len(regions))
	for i, r := range regions {
		boxes[i] = r.Box
	}
	return boxes
}
