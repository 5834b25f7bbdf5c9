package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawrelay/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(config.DashboardConfig{
		APIURL:         server.URL,
		APIKey:         "test-key",
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	client.SetHTTPClient(server.Client())
	return client, server
}

func TestCallSendsActionAndKey(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	})

	data, err := client.Call(context.Background(), ActionGetDecisions, map[string]any{"limit": 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
	assert.Equal(t, "/api/dashboard", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "get_decisions", gotBody["action"])
	assert.EqualValues(t, 5, gotBody["limit"])
}

func TestCallUnavailableOnErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := client.Call(context.Background(), ActionGetEvents, nil)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCallUnavailableOnTransportFailure(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()
	_, err := client.Call(context.Background(), ActionGetEvents, nil)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestCallUnavailableOnMalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	_, err := client.Call(context.Background(), ActionGetEvents, nil)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestGetEvents(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"id":1,"event_type":"BUY","symbol":"BTC","metadata":{"price":65000},"created_at":"2026-08-25T10:00:00Z"},
			{"id":2,"event_type":"SELL","symbol":"ETH","metadata":"{\"pnl\":12.5}"}
		]}`))
	})
	events, err := client.GetEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, "BUY", events[0].EventType)
	assert.Equal(t, float64(65000), events[0].Metadata["price"])

	// string-encoded metadata is decoded best effort
	assert.Equal(t, float64(12.5), events[1].Metadata["pnl"])
	assert.Equal(t, `{"pnl":12.5}`, events[1].MetaRaw)
}

func TestGetEventsEmpty(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	})
	events, err := client.GetEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMarkEventsPosted(t *testing.T) {
	var gotBody map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"data":{"marked":2}}`))
	})

	require.NoError(t, client.MarkEventsPosted(context.Background(), []int64{1, 2}))
	assert.Equal(t, "mark_events_posted", gotBody["action"])
	assert.Equal(t, []any{float64(1), float64(2)}, gotBody["eventIds"])

	// empty batch never issues a request
	gotBody = nil
	require.NoError(t, client.MarkEventsPosted(context.Background(), nil))
	assert.Nil(t, gotBody)
}

func TestEventMetadataDecode(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantMeta map[string]any
		wantRaw  string
	}{
		{"object", `{"id":1,"metadata":{"a":1}}`, map[string]any{"a": float64(1)}, ""},
		{"encoded string", `{"id":1,"metadata":"{\"a\":1}"}`, map[string]any{"a": float64(1)}, `{"a":1}`},
		{"undecodable string", `{"id":1,"metadata":"plain text"}`, nil, "plain text"},
		{"missing", `{"id":1}`, nil, ""},
		{"null", `{"id":1,"metadata":null}`, nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ev Event
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &ev))
			assert.Equal(t, tc.wantMeta, ev.Metadata)
			assert.Equal(t, tc.wantRaw, ev.MetaRaw)
		})
	}
}

func TestMetadataJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Event{Metadata: map[string]any{"a": 1}}.MetadataJSON())
	assert.Equal(t, "plain text", Event{MetaRaw: "plain text"}.MetadataJSON())
	assert.Equal(t, "{}", Event{}.MetadataJSON())
}
