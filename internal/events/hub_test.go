package events

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/gedoc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanOut(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()
	require.Equal(t, 2, h.Subscribers())

	e := NewEvent(Insert, models.Submission{ID: "s1"}, time.Now())
	h.Publish(e)

	assert.Equal(t, e.ID, (<-a).ID)
	assert.Equal(t, e.ID, (<-b).ID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open, "cancel closes the channel")
	assert.Equal(t, 1, h.Subscribers())
}

func TestSlowSubscriberDrops(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Publish(NewEvent(Update, models.Submission{ID: "s"}, time.Now()))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(4), h.Dropped())
}

func TestEventIDsAreOrdered(t *testing.T) {
	at := time.Now()
	first := NewEvent(Insert, models.Submission{}, at)
	second := NewEvent(Insert, models.Submission{}, at)
	assert.Less(t, first.ID, second.ID)
}

func TestServeSSE(t *testing.T) {
	h := NewHub(4)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeSSE))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	h.Publish(NewEvent(Insert, models.Submission{ID: "abc", Nom: "Awa"}, time.Now()))

	sc := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "event: insert", eventLine)
	assert.Contains(t, dataLine, `"nom":"Awa"`)
}
