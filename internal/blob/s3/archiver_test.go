package s3blob

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

type fakeWriter struct {
	path string
	body []byte
}

func (f *fakeWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	f.path = path
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	f.body = buf.Bytes()
	return nil
}

type fakeStore struct {
	closed []domain.TradeLog
}

func (f *fakeStore) Insert(context.Context, domain.TradeLog) error { return nil }
func (f *fakeStore) UpdateStatus(context.Context, string, domain.TradeStatus) error {
	return nil
}
func (f *fakeStore) ListRecent(context.Context, int) ([]domain.TradeLog, error) {
	return nil, nil
}
func (f *fakeStore) ListClosedBefore(context.Context, time.Time) ([]domain.TradeLog, error) {
	return f.closed, nil
}

func TestArchiveClosedWritesJSONL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := &fakeWriter{}
	store := &fakeStore{closed: []domain.TradeLog{
		{ID: "t1", MarketID: "m1", Status: domain.TradeStatusClosed},
		{ID: "t2", MarketID: "m1", Status: domain.TradeStatusClosed},
	}}

	a := NewArchiver(writer, store, 24*time.Hour, time.Hour, logger)
	cutoff := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	n, err := a.ArchiveClosed(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "archive/trades/2026-08.jsonl", writer.path)

	lines := strings.Split(strings.TrimSpace(string(writer.body)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"t1"`)
}

func TestArchiveClosedEmptySkipsUpload(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := &fakeWriter{}
	a := NewArchiver(writer, &fakeStore{}, 24*time.Hour, time.Hour, logger)

	n, err := a.ArchiveClosed(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.path)
}
