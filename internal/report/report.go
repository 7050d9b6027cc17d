package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/chatdetect/internal/chat"
)

const Version = "1"

// Report is the outcome of one run over a set of screenshots.
type Report struct {
	Version     string    `yaml:"version" json:"version"`
	RunID       string    `yaml:"run_id" json:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at" json:"generated_at"`
	Backend     string    `yaml:"backend" json:"backend"`
	Profile     string    `yaml:"profile" json:"profile"`
	Scoring     string    `yaml:"scoring" json:"scoring"`
	Threshold   float64   `yaml:"threshold" json:"threshold"`
	Entries     []*Entry  `yaml:"entries" json:"entries"`
}

// Entry is the classification of one screenshot.
type Entry struct {
	Input        string         `yaml:"input" json:"input"`
	Width        int            `yaml:"width" json:"width"`
	Height       int            `yaml:"height" json:"height"`
	FullText     string         `yaml:"full_text" json:"full_text"`
	Messages     []chat.Message `yaml:"messages" json:"messages"`
	Regions      []chat.Region  `yaml:"regions,omitempty" json:"regions,omitempty"`
	SwapCount    int            `yaml:"swap_count" json:"swap_count"`
	Alternates   bool           `yaml:"alternates" json:"alternates"`
	Confidence   float64        `yaml:"confidence" json:"confidence"`
	Conversation bool           `yaml:"conversation" json:"conversation"`
	Decision     string         `yaml:"decision" json:"decision"`
	// Error holds the flattened ProcessingError of a failed screenshot.
	Error     map[string]interface{} `yaml:"error,omitempty" json:"error,omitempty"`
	ElapsedMs float64                `yaml:"elapsed_ms" json:"elapsed_ms"`
	Elapsed   string                 `yaml:"elapsed" json:"elapsed"`
}

// New starts a report with a fresh run identifier.
func New(backend, profile, scoring string, threshold float64) *Report {
	return &Report{
		Version:     Version,
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Backend:     backend,
		Profile:     profile,
		Scoring:     scoring,
		Threshold:   threshold,
		Entries:     []*Entry{},
	}
}

// SetDecision applies the threshold to the entry's confidence.
func (e *Entry) SetDecision(threshold float64) {
	d := chat.Decide(e.Confidence, threshold)
	e.Conversation = d.Conversation
	e.Decision = d.String()
}

// SetElapsed records the processing time of the entry.
func (e *Entry) SetElapsed(d time.Duration) {
	e.ElapsedMs = float64(d.Microseconds()) / 1000
	e.Elapsed = FormatElapsed(d)
}

// Failed reports whether the screenshot could not be classified.
func (e *Entry) Failed() bool {
	return e.Error != nil
}

// FormatElapsed prints milliseconds below one second and seconds above.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2f ms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2f s", d.Seconds())
}

// Summary counts the outcomes of a report.
type Summary struct {
	Total         int
	Conversations int
	Failed        int
}

func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Entries)}
	for _, e := range r.Entries {
		switch {
		case e.Failed():
			s.Failed++
		case e.Conversation:
			s.Conversations++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d screenshots: %d conversations, %d other, %d failed",
		s.Total, s.Conversations, s.Total-s.Conversations-s.Failed, s.Failed)
}
