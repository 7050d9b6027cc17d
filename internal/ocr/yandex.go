package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/chatdetect/internal/chat"
)

const YandexEndpoint = "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText"

// Yandex calls the Yandex Vision text recognition API.
type Yandex struct {
	APIKey     string
	FolderID   string
	Endpoint   string
	HTTPClient *http.Client
	RetryDelay time.Duration
	MaxRetries uint64
	Logger     logrus.FieldLogger
}

func NewYandex(apiKey, folderID string) *Yandex {
	return &Yandex{
		APIKey:     apiKey,
		FolderID:   folderID,
		Endpoint:   YandexEndpoint,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		RetryDelay: 2 * time.Second,
		MaxRetries: 4,
		Logger:     logrus.StandardLogger(),
	}
}

func (y *Yandex) Name() string { return "yandex" }

type yandexRequest struct {
	MimeType      string   `json:"mimeType"`
	LanguageCodes []string `json:"languageCodes"`
	Model         string   `json:"model"`
	Content       string   `json:"content"`
}

// Recognize sends the image and normalizes the answer. An answer that cannot
// be parsed is treated as a page without text.
func (y *Yandex) Recognize(ctx context.Context, in Input) (*chat.Page, error) {
	data, err := encodeJPEG(in.Image)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(yandexRequest{
		MimeType:      "JPEG",
		LanguageCodes: []string{"*"},
		Model:         "page",
		Content:       base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	logger := y.logger().WithField("input", in.Name)
	raw, err := backoff.RetryWithData(func() ([]byte, error) {
		return y.post(ctx, body)
	}, backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(y.RetryDelay), y.MaxRetries), ctx))
	if err != nil {
		return nil, err
	}

	page, err := ParseYandex(raw)
	if err != nil {
		logger.WithError(err).Warn("Unreadable OCR response, treating page as empty")
		return &chat.Page{Frame: frameOf(in.Image)}, nil
	}
	if page.Frame.Validate() != nil {
		page.Frame = frameOf(in.Image)
	}
	logger.WithField("blocks", len(page.Blocks)).Debug("Yandex OCR done")
	return page, nil
}

func (y *Yandex) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+y.APIKey)
	req.Header.Set("x-folder-id", y.FolderID)

	resp, err := y.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("yandex ocr: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("yandex ocr: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	return raw, nil
}

func (y *Yandex) logger() logrus.FieldLogger {
	if y.Logger == nil {
		return logrus.StandardLogger()
	}
	return y.Logger
}

func (y *Yandex) client() *http.Client {
	if y.HTTPClient == nil {
		return http.DefaultClient
	}
	return y.HTTPClient
}

// flexInt accepts both 12 and "12"; the API sends int64 fields as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not an integer: %s", data)
	}
	*f = flexInt(n)
	return nil
}

type yandexVertex struct {
	X flexInt `json:"x"`
	Y flexInt `json:"y"`
}

type yandexPolygon struct {
	Vertices []yandexVertex `json:"vertices"`
}

func (p yandexPolygon) box() (chat.Box, bool) {
	if len(p.Vertices) == 0 {
		return chat.Box{}, false
	}
	v := p.Vertices[0]
	b := chat.Box{X1: int(v.X), Y1: int(v.Y), X2: int(v.X), Y2: int(v.Y)}
	for _, v := range p.Vertices[1:] {
		b = b.Union(chat.Box{X1: int(v.X), Y1: int(v.Y), X2: int(v.X), Y2: int(v.Y)})
	}
	return b, true
}

type yandexLine struct {
	Text string `json:"text"`
}

type yandexBlock struct {
	BoundingBox yandexPolygon `json:"boundingBox"`
	Lines       []yandexLine  `json:"lines"`
}

type yandexResponse struct {
	Result *struct {
		TextAnnotation *struct {
			Width    flexInt       `json:"width"`
			Height   flexInt       `json:"height"`
			FullText string        `json:"fullText"`
			Blocks   []yandexBlock `json:"blocks"`
		} `json:"textAnnotation"`
	} `json:"result"`
}

// ParseYandex normalizes a recognizeText response. A response without
// result.textAnnotation is a page without text.
func ParseYandex(raw []byte) (*chat.Page, error) {
	var resp yandexResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parsing yandex response: %w", err)
	}
	if resp.Result == nil || resp.Result.TextAnnotation == nil {
		return &chat.Page{}, nil
	}

	ta := resp.Result.TextAnnotation
	page := &chat.Page{
		Frame:    chat.Frame{Width: int(ta.Width), Height: int(ta.Height)},
		FullText: ta.FullText,
		Blocks:   make([]chat.TextBlock, 0, len(ta.Blocks)),
	}
	for _, b := range ta.Blocks {
		box, ok := b.BoundingBox.box()
		if !ok {
			continue
		}
		lines := make([]string, 0, len(b.Lines))
		for _, l := range b.Lines {
			lines = append(lines, l.Text)
		}
		page.Blocks = append(page.Blocks, chat.TextBlock{
			Text:  strings.Join(lines, "\n"),
			Lines: lines,
			Box:   box,
		})
	}
	return page, nil
}
