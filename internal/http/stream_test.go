package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBadgeEvent(t *testing.T, events <-chan BadgeDTO) BadgeDTO {
	t.Helper()
	select {
	case b := <-events:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for badge event")
		return BadgeDTO{}
	}
}

func TestStreamBadge_PushesChanges(t *testing.T) {
	env := newTestEnv(t, ProductSourceMock{products: testProducts()})
	env.do(t, http.MethodGet, "/api/v1/cart/", nil)
	require.NotEmpty(t, env.cookies)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/cart/badge/stream", nil)
	require.NoError(t, err)
	req.AddCookie(env.cookies[0])

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan BadgeDTO, 8)
	go func() {
		defer close(events)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var b BadgeDTO
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &b) == nil {
				events <- b
			}
		}
	}()

	assert.Equal(t, 0, readBadgeEvent(t, events).Count)

	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "airtag"})
	env.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: "airtag"})

	// Intermediate counts may be coalesced; the last event must be 2.
	for b := readBadgeEvent(t, events); b.Count != 2; b = readBadgeEvent(t, events) {
		assert.Less(t, b.Count, 2)
	}

	cancel()
}
