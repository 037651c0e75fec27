package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// BlobWriter is the narrow upload interface the archiver needs; *Writer
// satisfies it.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver periodically exports closed trade logs to object storage as
// JSONL, one file per calendar month. Deletion from the primary store is
// intentionally not performed here; archives are additive.
type Archiver struct {
	writer   BlobWriter
	store    domain.TradeLogStore
	after    time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewArchiver creates an Archiver that exports trades closed longer than
// `after` ago, checking on the given interval. A non-positive interval
// defaults to one hour.
func NewArchiver(writer BlobWriter, store domain.TradeLogStore, after, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		writer:   writer,
		store:    store,
		after:    after,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
	}
}

// Run archives on a timer until ctx is cancelled. Failures are logged and
// retried on the next interval.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := a.ArchiveClosed(ctx, time.Now().Add(-a.after)); err != nil {
				a.logger.Warn("archive pass failed", slog.String("error", err.Error()))
			} else if n > 0 {
				a.logger.Info("archived closed trades", slog.Int64("count", n))
			}
		}
	}
}

// ArchiveClosed exports all CLOSED trade logs created before the cutoff to
// archive/trades/YYYY-MM.jsonl and returns how many were written.
func (a *Archiver) ArchiveClosed(ctx context.Context, before time.Time) (int64, error) {
	entries, err := a.store.ListClosedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}
	return int64(len(entries)), nil
}

// marshalJSONL serializes entries as newline-delimited JSON.
func marshalJSONL(entries []domain.TradeLog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// archivePath returns the object key for a cutoff month, e.g.
// "archive/trades/2026-08.jsonl".
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/trades/%s.jsonl", before.UTC().Format("2006-01"))
}
