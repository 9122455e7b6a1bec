package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"audiopress/internal/deps"
	"audiopress/internal/logging"
	"audiopress/internal/media"
	"audiopress/internal/services"
	"audiopress/internal/store"
)

type fakeConverter struct {
	artifact media.ArtifactDescriptor
	meta     media.VideoMetadata
	err      error
	lastReq  media.DownloadRequest
}

func (f *fakeConverter) Process(_ context.Context, req media.DownloadRequest) (media.ArtifactDescriptor, error) {
	f.lastReq = req
	return f.artifact, f.err
}

func (f *fakeConverter) Metadata(context.Context, string) (media.VideoMetadata, error) {
	return f.meta, f.err
}

type fakeHistory struct {
	conversions []store.Conversion
	counters    store.Counters
}

func (f *fakeHistory) ListRecent(context.Context, int) ([]store.Conversion, error) {
	return f.conversions, nil
}

func (f *fakeHistory) Count(context.Context) (store.Counters, error) {
	return f.counters, nil
}

type fakeDeps struct{ statuses []deps.Status }

func (f *fakeDeps) Report(context.Context) []deps.Status { return f.statuses }

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Converter == nil {
		opts.Converter = &fakeConverter{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func postConvert(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConvertSuccess(t *testing.T) {
	converter := &fakeConverter{artifact: media.ArtifactDescriptor{
		FileName:            "Track_Title.mp3",
		Title:               "Track Title",
		FileSizeBytes:       4_200_000,
		RequestedQuality:    media.Quality320,
		MeasuredBitrateKbps: 320,
		ExpiresAt:           time.Now().Add(5 * 24 * time.Hour),
	}}
	srv := newTestServer(t, Options{Converter: converter})

	rec := postConvert(t, srv, `{"url":"https://youtu.be/dQw4w9WgXcQ","quality":"320","title":"Track Title"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp ConvertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.DownloadURL != "/downloads/Track_Title.mp3" {
		t.Fatalf("response = %+v", resp)
	}
	if converter.lastReq.Quality != media.Quality320 || converter.lastReq.RequestedTitle != "Track Title" {
		t.Fatalf("request passthrough = %+v", converter.lastReq)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestConvertRejectsBadQuality(t *testing.T) {
	srv := newTestServer(t, Options{})
	rec := postConvert(t, srv, `{"url":"https://youtu.be/dQw4w9WgXcQ","quality":"192"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConvertMapsTaggedErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"playlist", services.Wrap(services.ErrPlaylist, "validate", "url", "playlist links are not supported", nil), http.StatusBadRequest},
		{"too-long", services.Wrap(services.ErrTooLong, "resolve", "length gate", "video runs 15m", nil), http.StatusBadRequest},
		{"extraction", services.Wrap(services.ErrExtraction, "extract", "chain", "all strategies exhausted", nil), http.StatusServiceUnavailable},
		{"encoder", services.Wrap(services.ErrEncoder, "transcode", "encode", "exit status 1", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, Options{Converter: &fakeConverter{err: tc.err}})
			rec := postConvert(t, srv, `{"url":"https://youtu.be/dQw4w9WgXcQ","quality":"128"}`)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Error == "" {
				t.Fatalf("error payload = %+v", resp)
			}
			if strings.Contains(resp.Error, "chain") || strings.Contains(resp.Error, "exit status") {
				t.Fatalf("diagnostic detail leaked: %q", resp.Error)
			}
		})
	}
}

func TestConvertMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/convert", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestConvertAuthorizerRejection(t *testing.T) {
	srv := newTestServer(t, Options{
		Authorize: func(*http.Request) error { return errors.New("origin not allowed") },
	})
	rec := postConvert(t, srv, `{"url":"https://youtu.be/dQw4w9WgXcQ","quality":"128"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMetadataEndpoint(t *testing.T) {
	converter := &fakeConverter{meta: media.VideoMetadata{Title: "Track", DurationSeconds: 214, AuthorName: "Channel"}}
	srv := newTestServer(t, Options{Converter: converter})

	req := httptest.NewRequest(http.MethodGet, "/api/metadata?url=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp MetadataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Title != "Track" || resp.DurationSeconds != 214 {
		t.Fatalf("response = %+v", resp)
	}
	if !resp.IsValid {
		t.Fatal("success payload must carry isValid = true")
	}
}

func TestMetadataRequiresURL(t *testing.T) {
	srv := newTestServer(t, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/metadata", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{
		History: &fakeHistory{counters: store.Counters{Completed: 7, Failed: 2}},
		Dependencies: &fakeDeps{statuses: []deps.Status{
			{Name: "yt-dlp", Command: "yt-dlp", Available: true, Version: "2026.08.01"},
		}},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Running || resp.Completed != 7 || resp.Failed != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if len(resp.Dependencies) != 1 || !resp.Dependencies[0].Available {
		t.Fatalf("dependencies = %+v", resp.Dependencies)
	}
}

func TestRecentEndpoint(t *testing.T) {
	srv := newTestServer(t, Options{History: &fakeHistory{conversions: []store.Conversion{
		{Title: "Track", FileName: "Track.mp3", Quality: media.Quality128, FileSizeBytes: 99, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)},
	}}})
	req := httptest.NewRequest(http.MethodGet, "/api/recent?limit=5", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp RecentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].DownloadURL != "/downloads/Track.mp3" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	srv := newTestServer(t, Options{Limiter: rate.NewLimiter(0, 1)})

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}
	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", second.Code)
	}
}
