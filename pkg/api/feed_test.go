package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Roguelazer/advsearch/pkg/core"
	"github.com/Roguelazer/advsearch/pkg/realtime"
)

func TestFeedStreamsDocumentEvents(t *testing.T) {
	ts, _, _ := newTestServer(t, newStubProvider("local"))

	wsURL, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parsing url: %v", err)
	}
	wsURL.Scheme = "ws"
	wsURL.Path = "/api/feed"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		t.Fatalf("dialing feed: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			t.Errorf("closing conn: %v", err)
		}
	}()

	body, _ := json.Marshal(core.Document{ID: "wiki_Live", Source: "wiki", Title: "Live"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/documents", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Errorf("closing body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert status: %d", resp.StatusCode)
	}

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("setting deadline: %v", err)
	}

	var event realtime.DocumentEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if event.Action != "upsert" || event.ID != "wiki_Live" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestFeedUnavailableWithoutHub(t *testing.T) {
	registry := core.NewRegistry()
	server := NewServer(registry, nil, nil, nil)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	req, _ := http.NewRequest(http.MethodGet, "/api/feed", nil)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d want 503", recorder.Code)
	}
}
