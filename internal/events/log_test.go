package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

func TestAppendEvictsOldest(t *testing.T) {
	l := NewLog(3)
	for i := 0; i < 5; i++ {
		l.Append(domain.EventInfo, fmt.Sprintf("event %d", i))
	}

	got := l.Recent(0)
	require.Len(t, got, 3)
	assert.Equal(t, "event 4", got[0].Message)
	assert.Equal(t, "event 2", got[2].Message)
}

func TestRecentNewestFirst(t *testing.T) {
	l := NewLog(10)
	l.Append(domain.EventInfo, "first")
	l.Append(domain.EventWarn, "second")

	got := l.Recent(1)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Message)
	assert.Equal(t, domain.EventWarn, got[0].Severity)
}

func TestRecentEmpty(t *testing.T) {
	l := NewLog(10)
	assert.Empty(t, l.Recent(5))
}

func TestPublisherSeesEveryAppend(t *testing.T) {
	l := NewLog(10)

	var published []domain.Event
	l.SetPublisher(func(ev domain.Event) {
		published = append(published, ev)
	})

	l.Append(domain.EventInfo, "one")
	l.Append(domain.EventError, "two")

	require.Len(t, published, 2)
	assert.Equal(t, "one", published[0].Message)
	assert.Equal(t, domain.EventError, published[1].Severity)
}
