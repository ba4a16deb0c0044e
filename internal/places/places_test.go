// Dinemap - Restaurant Guide Cache and Proximity Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dinemap

package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/dinemap/internal/config"
	"github.com/tomtom215/dinemap/internal/geo"
)

// fakePlaces serves canned bodies per endpoint and counts calls.
type fakePlaces struct {
	mu       sync.Mutex
	t        *testing.T
	bodies   map[string]string
	status   map[string]int
	calls    map[string]*int32
	lastURLs map[string]string
}

func newFakePlaces(t *testing.T, bodies map[string]string) (*fakePlaces, *httptest.Server) {
	f := &fakePlaces{
		t:        t,
		bodies:   bodies,
		status:   map[string]int{},
		calls:    map[string]*int32{},
		lastURLs: map[string]string{},
	}
	for _, ep := range []string{endpointFindPlace, endpointDetails, endpointNearby} {
		f.calls[ep] = new(int32)
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePlaces) serve(w http.ResponseWriter, r *http.Request) {
	// /findplacefromtext/json -> findplacefromtext
	ep := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/json")
	if r.URL.Query().Get("key") != "test-key" {
		f.t.Errorf("Expected API key on %s request", ep)
	}
	if c, ok := f.calls[ep]; ok {
		atomic.AddInt32(c, 1)
	}
	f.mu.Lock()
	f.lastURLs[ep] = r.URL.RawQuery
	code, failing := f.status[ep]
	f.mu.Unlock()

	if failing {
		w.WriteHeader(code)
		return
	}
	body, ok := f.bodies[ep]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakePlaces) fail(ep string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[ep] = code
}

func (f *fakePlaces) lastQuery(ep string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastURLs[ep]
}

func (f *fakePlaces) count(ep string) int32 {
	return atomic.LoadInt32(f.calls[ep])
}

func newTestClient(baseURL string) *Client {
	return New(&config.PlacesConfig{
		APIKey:           "test-key",
		BaseURL:          baseURL,
		Timeout:          2 * time.Second,
		QuerySuffix:      " Taiwan",
		Language:         "ko",
		PhotoMaxWidth:    400,
		PlaceIDCacheSize: 10,
	}, nil)
}

func TestFetchRating(t *testing.T) {
	f, srv := newFakePlaces(t, map[string]string{
		endpointFindPlace: `{"status":"OK","candidates":[{"place_id":"p1","rating":4.4,"user_ratings_total":1520}]}`,
	})
	c := newTestClient(srv.URL)

	r, err := c.FetchRating(context.Background(), "Din Tai Fung")
	if err != nil {
		t.Fatalf("FetchRating failed: %v", err)
	}
	if r.Rating != 4.4 || r.UserRatingsTotal != 1520 {
		t.Errorf("Unexpected rating %+v", r)
	}
	if !strings.Contains(f.lastQuery(endpointFindPlace), "input=Din+Tai+Fung+Taiwan") {
		t.Errorf("Expected query suffix in %q", f.lastQuery(endpointFindPlace))
	}
}

func TestFetchPhoto_FromCandidate(t *testing.T) {
	f, srv := newFakePlaces(t, map[string]string{
		endpointFindPlace: `{"status":"OK","candidates":[{"place_id":"p1","photos":[{"photo_reference":"ref-1"}]}]}`,
	})
	c := newTestClient(srv.URL)

	p, err := c.FetchPhoto(context.Background(), "Taipei 101")
	if err != nil {
		t.Fatalf("FetchPhoto failed: %v", err)
	}
	if !strings.Contains(p.PhotoURL, "photo_reference=ref-1") || !strings.Contains(p.PhotoURL, "maxwidth=400") {
		t.Errorf("Unexpected photo URL %q", p.PhotoURL)
	}
	if f.count(endpointDetails) != 0 {
		t.Error("Expected no details call when the candidate has photos")
	}
}

func TestFetchPhoto_DetailsFallbackUsesMemo(t *testing.T) {
	f, srv := newFakePlaces(t, map[string]string{
		endpointFindPlace: `{"status":"OK","candidates":[{"place_id":"p1"}]}`,
		endpointDetails:   `{"status":"OK","result":{"business_status":"CLOSED_PERMANENTLY","photos":[{"photo_reference":"ref-2"}]}}`,
	})
	c := newTestClient(srv.URL)

	for i := 0; i < 2; i++ {
		p, err := c.FetchPhoto(context.Background(), "Old Shop")
		if err != nil {
			t.Fatalf("FetchPhoto failed: %v", err)
		}
		if !strings.Contains(p.PhotoURL, "ref-2") || !p.IsClosed {
			t.Errorf("Unexpected photo %+v", p)
		}
	}
	if got := f.count(endpointFindPlace); got != 1 {
		t.Errorf("Expected 1 findplace call thanks to the place ID memo, got %d", got)
	}
	if got := f.count(endpointDetails); got != 2 {
		t.Errorf("Expected 2 details calls, got %d", got)
	}
}

func TestFetchReviews_SortedNewestFirst(t *testing.T) {
	_, srv := newFakePlaces(t, map[string]string{
		endpointFindPlace: `{"status":"OK","candidates":[{"place_id":"p9"}]}`,
		endpointDetails: `{"status":"OK","result":{"rating":4.1,"user_ratings_total":88,"reviews":[
			{"author_name":"a","rating":5,"text":"old","time":100},
			{"author_name":"b","rating":3,"text":"new","time":300},
			{"author_name":"c","rating":4,"text":"mid","time":200}]}}`,
	})
	c := newTestClient(srv.URL)

	r, err := c.FetchReviews(context.Background(), "Raohe Night Market")
	if err != nil {
		t.Fatalf("FetchReviews failed: %v", err)
	}
	if r.PlaceID != "p9" || r.Rating != 4.1 || r.UserRatingsTotal != 88 {
		t.Errorf("Unexpected document %+v", r)
	}
	if len(r.Reviews) != 3 || r.Reviews[0].Text != "new" || r.Reviews[2].Text != "old" {
		t.Errorf("Expected newest first, got %+v", r.Reviews)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"zero results", `{"status":"ZERO_RESULTS","candidates":[]}`, ErrNotFound},
		{"no candidates", `{"status":"OK","candidates":[]}`, ErrNotFound},
		{"quota", `{"status":"OVER_QUERY_LIMIT","error_message":"slow down"}`, ErrQuota},
		{"denied", `{"status":"REQUEST_DENIED","error_message":"bad key"}`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakePlaces(t, map[string]string{endpointFindPlace: tt.body})
			c := newTestClient(srv.URL)

			_, err := c.FetchRating(context.Background(), "x")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHTTP429IsQuota(t *testing.T) {
	f, srv := newFakePlaces(t, nil)
	f.fail(endpointFindPlace, http.StatusTooManyRequests)
	c := newTestClient(srv.URL)

	if _, err := c.FetchRating(context.Background(), "x"); !errors.Is(err, ErrQuota) {
		t.Errorf("Expected ErrQuota, got %v", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	c := New(&config.PlacesConfig{BaseURL: "http://127.0.0.1:1"}, nil)
	if _, err := c.FetchRating(context.Background(), "x"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestFetchNearbyPoints(t *testing.T) {
	f, srv := newFakePlaces(t, map[string]string{
		endpointNearby: `{"status":"OK","results":[
			{"place_id":"fm1","name":"FamilyMart Zhongxiao","vicinity":"No. 1","geometry":{"location":{"lat":25.0421,"lng":121.5081}},"opening_hours":{"open_now":true}},
			{"place_id":"fm2","name":"FamilyMart Ximen","vicinity":"No. 2","geometry":{"location":{"lat":25.0422,"lng":121.5082}}}]}`,
	})
	c := newTestClient(srv.URL)

	got, err := c.FetchNearbyPoints(context.Background(), geo.Point{Lat: 25.0478, Lng: 121.5170}, 80000,
		Category{PlaceType: "convenience_store", Keyword: "FamilyMart"})
	if err != nil {
		t.Fatalf("FetchNearbyPoints failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 amenities, got %d", len(got))
	}
	if got[0].OpenNow == nil || !*got[0].OpenNow || got[1].OpenNow != nil {
		t.Errorf("Unexpected opening hours %+v %+v", got[0], got[1])
	}
	if got[0].Brand != "FamilyMart" || got[0].Coordinates.Lat != 25.0421 {
		t.Errorf("Unexpected amenity %+v", got[0])
	}

	q := f.lastQuery(endpointNearby)
	for _, want := range []string{"radius=50000", "type=convenience_store", "keyword=FamilyMart", "location=25.0478%2C121.517"} {
		if !strings.Contains(q, want) {
			t.Errorf("Expected %q in query %q", want, q)
		}
	}
}

func TestFetchNearbyPoints_ZeroResultsIsEmpty(t *testing.T) {
	_, srv := newFakePlaces(t, map[string]string{
		endpointNearby: `{"status":"ZERO_RESULTS","results":[]}`,
	})
	c := newTestClient(srv.URL)

	got, err := c.FetchNearbyPoints(context.Background(), geo.Point{Lat: 25, Lng: 121}, 500, Category{Keyword: "7-ELEVEN"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", got)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	f, srv := newFakePlaces(t, nil)
	f.fail(endpointFindPlace, http.StatusInternalServerError)
	c := newTestClient(srv.URL)

	for i := 0; i < 10; i++ {
		_, _ = c.FetchRating(context.Background(), "x")
	}
	if c.BreakerState() != "open" {
		t.Fatalf("Expected open breaker, got %s", c.BreakerState())
	}

	before := f.count(endpointFindPlace)
	_, err := c.FetchRating(context.Background(), "x")
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Expected ErrUpstream from open breaker, got %v", err)
	}
	if f.count(endpointFindPlace) != before {
		t.Error("Expected open breaker to short-circuit the HTTP call")
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	_, srv := newFakePlaces(t, map[string]string{
		endpointFindPlace: `{"status":"ZERO_RESULTS"}`,
	})
	c := newTestClient(srv.URL)

	for i := 0; i < 15; i++ {
		_, _ = c.FetchRating(context.Background(), "nowhere")
	}
	if c.BreakerState() != "closed" {
		t.Errorf("Expected closed breaker, got %s", c.BreakerState())
	}
}
