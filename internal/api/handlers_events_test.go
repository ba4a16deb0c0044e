// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/dinemap/internal/websocket"
)

func newEventServer(t *testing.T, hub *websocket.Hub, origins []string) *httptest.Server {
	t.Helper()

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	handler := NewHandler(&fakeGuide{}, &fakeNearby{}, &fakeAdmin{}, nil)
	handler.SetEventHub(hub, origins)

	server := httptest.NewServer(NewRouter(handler, NewChiMiddleware(cfg)).SetupChi())
	t.Cleanup(server.Close)
	return server
}

func eventURL(server *httptest.Server, key string) string {
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/cache/events"
	if key != "" {
		u += "?key=" + url.QueryEscape(key)
	}
	return u
}

func TestCacheEvents_Disabled(t *testing.T) {
	t.Parallel()
	h := newTestRouter(t, &testDeps{})

	rec, env := do(t, h, http.MethodGet, "/api/v1/cache/events", "", map[string]string{"X-Admin-Key": testAdminKey})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("Expected SERVICE_UNAVAILABLE, got %+v", env.Error)
	}
}

func TestCacheEvents_RequiresCredential(t *testing.T) {
	t.Parallel()
	server := newEventServer(t, websocket.NewHub(), []string{"*"})

	header := http.Header{"Origin": {"https://guide.example"}}
	_, resp, err := gorilla.DefaultDialer.Dial(eventURL(server, ""), header)
	if err == nil {
		t.Fatal("Expected dial to fail without credential")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %v", resp)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
}

func TestCacheEvents_RejectsOrigin(t *testing.T) {
	t.Parallel()
	server := newEventServer(t, websocket.NewHub(), []string{"https://guide.example"})

	tests := []struct {
		name   string
		header http.Header
	}{
		{name: "foreign origin", header: http.Header{"Origin": {"https://evil.example"}}},
		{name: "missing origin", header: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := gorilla.DefaultDialer.Dial(eventURL(server, testAdminKey), tt.header)
			if err == nil {
				t.Fatal("Expected dial to fail")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status 403, got %v", resp)
			}
			if resp != nil {
				_ = resp.Body.Close()
			}
		})
	}
}

func TestCacheEvents_StreamsPublishedEvents(t *testing.T) {
	t.Parallel()

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	server := newEventServer(t, hub, []string{"https://guide.example"})

	header := http.Header{"Origin": {"https://guide.example"}}
	conn, resp, err := gorilla.DefaultDialer.Dial(eventURL(server, testAdminKey), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial event feed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(websocket.MessageTypeInvalidation, map[string]string{"scope": "all"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if msg.Type != websocket.MessageTypeInvalidation || msg.Data["scope"] != "all" {
		t.Errorf("Unexpected event %+v", msg)
	}
}
