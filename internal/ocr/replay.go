package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/chatdetect/internal/chat"
)

// Replay answers from stored Yandex responses, <dir>/<name>.json, so that
// runs can be repeated without network access or credentials.
type Replay struct {
	Dir string
}

func NewReplay(dir string) *Replay {
	return &Replay{Dir: dir}
}

func (r *Replay) Name() string { return "replay" }

// Recognize treats a missing recording as a page without text.
func (r *Replay) Recognize(ctx context.Context, in Input) (*chat.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.Dir, recordingName(in.Name))
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &chat.Page{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recording: %w", err)
	}

	page, err := ParseYandex(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if page.Frame.Validate() != nil && in.Image != nil {
		page.Frame = frameOf(in.Image)
	}
	return page, nil
}

func recordingName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}
