package ocr

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivlev/chatdetect/internal/chat"
	"github.com/ivlev/chatdetect/internal/logging"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1000, 1000))
}

func testYandex(url string) *Yandex {
	y := NewYandex("key", "folder")
	y.Endpoint = url
	y.RetryDelay = time.Millisecond
	y.Logger = logging.Discard()
	return y
}

func TestParseYandex(t *testing.T) {
	raw, err := os.ReadFile("testdata/chat.json")
	if err != nil {
		t.Fatal(err)
	}

	page, err := ParseYandex(raw)
	if err != nil {
		t.Fatalf("ParseYandex failed: %v", err)
	}
	if page.Frame != (chat.Frame{Width: 1000, Height: 1000}) {
		t.Errorf("Unexpected frame %+v", page.Frame)
	}
	if len(page.Blocks) != 5 {
		t.Fatalf("Expected 5 blocks, got %d", len(page.Blocks))
	}
	first := page.Blocks[0]
	if first.Box != chat.NewBox(20, 100, 300, 165) || len(first.Lines) != 2 {
		t.Errorf("Unexpected first block %+v", first)
	}
	if !page.Blocks[2].IsTimestamp() {
		t.Error("Expected third block to be a timestamp")
	}
	if page.Blocks[3].Box != chat.NewBox(20, 400, 200, 430) {
		t.Errorf("Numeric coordinates parsed wrong: %+v", page.Blocks[3].Box)
	}
}

func TestParseYandexEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    bool
		wantBlocks int
	}{
		{"no result", `{}`, false, 0},
		{"no annotation", `{"result": {}}`, false, 0},
		{"empty annotation", `{"result": {"textAnnotation": {"fullText": ""}}}`, false, 0},
		{"block without box", `{"result": {"textAnnotation": {"width": "10", "height": "10", "blocks": [{"lines": [{"text": "x"}]}]}}}`, false, 0},
		{"not json", `<html>`, true, 0},
		{"bad coordinate", `{"result": {"textAnnotation": {"width": "wide"}}}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParseYandex([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseYandex error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(page.Blocks) != tt.wantBlocks {
				t.Errorf("Expected %d blocks, got %d", tt.wantBlocks, len(page.Blocks))
			}
		})
	}
}

func TestYandexRecognize(t *testing.T) {
	raw, err := os.ReadFile("testdata/chat.json")
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Api-Key key" || r.Header.Get("x-folder-id") != "folder" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req yandexRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "page" || req.Content == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write(raw)
	}))
	defer srv.Close()

	page, err := testYandex(srv.URL).Recognize(context.Background(), Input{Name: "chat.png", Image: testImage()})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(page.Blocks) != 5 {
		t.Errorf("Expected 5 blocks, got %d", len(page.Blocks))
	}
}

func TestYandexRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"result": {"textAnnotation": {"width": "1000", "height": "1000", "fullText": ""}}}`))
	}))
	defer srv.Close()

	page, err := testYandex(srv.URL).Recognize(context.Background(), Input{Name: "a.png", Image: testImage()})
	if err != nil {
		t.Fatalf("Recognize failed after retries: %v", err)
	}
	if !page.Empty() {
		t.Error("Expected an empty page")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 calls, got %d", got)
	}
}

func TestYandexClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testYandex(srv.URL).Recognize(context.Background(), Input{Name: "a.png", Image: testImage()})
	if err == nil {
		t.Fatal("Expected error for 401")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single call, got %d", got)
	}
	t.Logf("Error: %v", err)
}

func TestYandexMalformedBodyIsEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	page, err := testYandex(srv.URL).Recognize(context.Background(), Input{Name: "a.png", Image: testImage()})
	if err != nil {
		t.Fatalf("Malformed body should not fail: %v", err)
	}
	if !page.Empty() || page.Frame.Width != 1000 {
		t.Errorf("Expected empty page with image frame, got %+v", page)
	}
}

func TestYandexZeroValueClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result": {"textAnnotation": {"width": "1000", "height": "1000", "fullText": ""}}}`))
	}))
	defer srv.Close()

	// Only the required fields: no logger, no HTTP client.
	y := &Yandex{APIKey: "key", FolderID: "folder", Endpoint: srv.URL}
	page, err := y.Recognize(context.Background(), Input{Name: "a.png", Image: testImage()})
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if !page.Empty() {
		t.Errorf("Expected an empty page, got %+v", page)
	}
}

func TestYandexCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testYandex(srv.URL).Recognize(ctx, Input{Name: "a.png", Image: testImage()}); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
