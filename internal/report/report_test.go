package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ivlev/chatdetect/internal/chat"
	perrors "github.com/ivlev/chatdetect/internal/errors"
)

func sampleReport() *Report {
	r := New("yandex", "yandex", "auto", 0.8)

	ok := &Entry{
		Input:      "chat.png",
		Width:      1000,
		Height:     1000,
		FullText:   "hi hello",
		Confidence: 0.84,
		SwapCount:  4,
		Alternates: true,
		Messages: []chat.Message{
			{Text: "hi", Bounds: chat.NewBox(20, 100, 300, 165), Side: chat.SideLeft, Blocks: []int{0}},
			{Text: "hello", Bounds: chat.NewBox(620, 220, 980, 285), Side: chat.SideRight, Blocks: []int{1}},
		},
		Regions: []chat.Region{{Box: chat.NewBox(10, 90, 310, 175), Side: chat.SideLeft}},
	}
	ok.SetDecision(r.Threshold)
	ok.SetElapsed(420 * time.Millisecond)

	plain := &Entry{Input: "cat.jpg", FullText: chat.NoConversationText, Messages: []chat.Message{}}
	plain.SetDecision(r.Threshold)

	failed := &Entry{Input: "broken.png", Error: perrors.NewDecodeError("broken.png", os.ErrInvalid).ToMap()}

	r.Entries = append(r.Entries, ok, plain, failed)
	return r
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.yaml")
	r := sampleReport()

	if err := Write(r, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if loaded.RunID != r.RunID || len(loaded.RunID) != 36 {
		t.Errorf("Unexpected run id %q", loaded.RunID)
	}
	if len(loaded.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(loaded.Entries))
	}
	first := loaded.Entries[0]
	if first.Messages[1].Side != chat.SideRight || first.Messages[0].Bounds != chat.NewBox(20, 100, 300, 165) {
		t.Errorf("Messages did not survive the round trip: %+v", first.Messages)
	}
	if !first.Conversation || first.Decision != "conversation" {
		t.Errorf("Unexpected decision %q", first.Decision)
	}
	if loaded.Entries[2].Error["error_code"] != string(perrors.ErrorDecodeFailed) {
		t.Errorf("Unexpected error map %v", loaded.Entries[2].Error)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "side: right") {
		t.Errorf("Expected sides to be written by name:\n%s", data)
	}
}

func TestSummary(t *testing.T) {
	s := sampleReport().Summary()
	if s.Total != 3 || s.Conversations != 1 || s.Failed != 1 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if got := s.String(); got != "3 screenshots: 1 conversations, 1 other, 1 failed" {
		t.Errorf("Unexpected summary text %q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Microsecond, "1.50 ms"},
		{999 * time.Millisecond, "999.00 ms"},
		{2500 * time.Millisecond, "2.50 s"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.d); got != tt.want {
			t.Errorf("FormatElapsed(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestGeneratePath(t *testing.T) {
	path := GeneratePath("reports")
	if !strings.HasPrefix(path, filepath.Join("reports", "report_")) || !strings.HasSuffix(path, ".yaml") {
		t.Errorf("Unexpected path %s", path)
	}
	t.Logf("Generated path: %s", path)
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	files := []string{"report_a.yaml", "report_b.yaml", "report_c.yaml", "notes.txt"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("version: \"1\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := time.Now().Add(time.Duration(i) * time.Hour)
		os.Chtimes(path, modTime, modTime)
	}

	latest, err := FindLatest(dir)
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if filepath.Base(latest) != "report_c.yaml" {
		t.Errorf("Expected report_c.yaml, got %s", latest)
	}

	if _, err := FindLatest(t.TempDir()); err == nil {
		t.Error("Expected error for an empty directory")
	}
}
