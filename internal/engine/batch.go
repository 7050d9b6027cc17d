package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/chatdetect/internal/ocr"
	"github.com/ivlev/chatdetect/internal/report"
	"github.com/ivlev/chatdetect/internal/source"
)

// Batch классифицирует все скриншоты src, не более workers одновременно.
// Порядок записей совпадает с порядком источника. Ошибка скриншота пишется
// в его запись; прерывает пакет только отмена контекста.
func (p *Pipeline) Batch(ctx context.Context, src source.Source, dpi, workers int) ([]*report.Entry, error) {
	count := src.PageCount()
	entries := make([]*report.Entry, count)
	if count == 0 {
		return entries, nil
	}
	if workers < 1 {
		workers = 1
	}

	logger := p.logger()
	logger.WithFields(logrus.Fields{"screenshots": count, "workers": workers}).
		Infof("[*] Источник: %d скриншотов", count)

	var done int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			name := src.Name(i)

			img, err := src.RenderPage(i, dpi)
			if err != nil {
				logger.WithError(err).Warnf("[!] Ошибка рендеринга %s", name)
				entries[i] = failedEntry(name, err, time.Since(start))
				return nil
			}

			entry, err := p.Process(gctx, ocr.Input{Name: name, Image: img})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.WithError(err).Warnf("[!] Ошибка обработки %s", name)
				entries[i] = failedEntry(name, err, time.Since(start))
				return nil
			}
			entries[i] = entry

			logger.Debugf("[>] Ready: %d/%d", atomic.AddInt32(&done, 1), count)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
