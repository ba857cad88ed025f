package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const probePage = `<html><head><title> Heroes | Hall </title></head><body><main>Brok</main></body></html>`

func encodedServer(t *testing.T, encoding string) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	switch encoding {
	case "br":
		w := brotli.NewWriter(&buf)
		w.Write([]byte(probePage))
		w.Close()
	case "gzip":
		w := gzip.NewWriter(&buf)
		w.Write([]byte(probePage))
		w.Close()
	default:
		buf.WriteString(probePage)
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Errorf("probe should advertise brotli, got %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if encoding != "" {
			w.Header().Set("Content-Encoding", encoding)
		}
		w.Write(buf.Bytes())
	}))
}

func TestProbeDecodesEncodings(t *testing.T) {
	for _, enc := range []string{"", "gzip", "br"} {
		t.Run("encoding="+enc, func(t *testing.T) {
			srv := encodedServer(t, enc)
			defer srv.Close()

			p := NewProbe(5*time.Second, testLogger)
			defer p.Close()

			res, err := p.Ping(context.Background(), srv.URL+"/heroes")
			if err != nil {
				t.Fatalf("ping: %v", err)
			}
			if !res.OK() {
				t.Errorf("expected 2xx, got %d", res.Status)
			}
			if res.Title != "Heroes | Hall" {
				t.Errorf("expected decoded title, got %q", res.Title)
			}
			if res.Bytes != len(probePage) {
				t.Errorf("expected %d decoded bytes, got %d", len(probePage), res.Bytes)
			}
			if res.Encoding != enc {
				t.Errorf("expected encoding %q, got %q", enc, res.Encoding)
			}
		})
	}
}

func TestProbeReportsStatus(t *testing.T) {
	srv := encodedServer(t, "")
	defer srv.Close()

	p := NewProbe(5*time.Second, testLogger)
	res, err := p.Ping(context.Background(), srv.URL+"/missing")
	if err != nil {
		t.Fatalf("a 404 is a result, not an error: %v", err)
	}
	if res.OK() || res.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %d", res.Status)
	}
}

func TestProbeUnreachable(t *testing.T) {
	srv := encodedServer(t, "")
	url := srv.URL
	srv.Close()

	p := NewProbe(time.Second, testLogger)
	_, err := p.Ping(context.Background(), url)

	var visitErr *types.VisitError
	if !errors.As(err, &visitErr) {
		t.Fatalf("expected VisitError, got %v", err)
	}
	if visitErr.Stage != "probe" {
		t.Errorf("expected probe stage, got %q", visitErr.Stage)
	}
}

func TestDecompressRejectsUnknownEncoding(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Content-Encoding": {"zstd"}}}
	if _, err := decompressReader(resp, strings.NewReader("")); err == nil {
		t.Error("unknown encoding should be rejected")
	}
}

func TestParseWindowSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h int
		ok   bool
	}{
		{"1920,1080", 1920, 1080, true},
		{" 1366 , 768 ", 1366, 768, true},
		{"1920x1080", 0, 0, false},
		{"0,600", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		w, h, ok := parseWindowSize(tt.in)
		if w != tt.w || h != tt.h || ok != tt.ok {
			t.Errorf("parseWindowSize(%q) = %d, %d, %v; want %d, %d, %v", tt.in, w, h, ok, tt.w, tt.h, tt.ok)
		}
	}
}

func TestStealthConfig(t *testing.T) {
	sc := NewStealthConfig("1280,720")
	if sc.ViewportWidth != 1280 || sc.ViewportHeight != 720 || sc.WindowSize != "1280,720" {
		t.Errorf("window size not honoured: %+v", sc)
	}
	if sc.HardwareConcurrency < 4 || sc.HardwareConcurrency > 16 {
		t.Errorf("hardware concurrency out of range: %d", sc.HardwareConcurrency)
	}

	js := sc.StealthJS()
	for _, want := range []string{"'webdriver'", "'" + sc.Platform + "'", "=> 1280"} {
		if !strings.Contains(js, want) {
			t.Errorf("stealth script missing %q", want)
		}
	}

	if fallback := NewStealthConfig("bogus"); fallback.ViewportWidth == 0 {
		t.Error("malformed size should fall back to a common viewport")
	}
}

// TestBrowserPoolLive launches a real Chromium; rod downloads one when no
// binary is configured.
func TestBrowserPoolLive(t *testing.T) {
	if testing.Short() || os.Getenv("HALLCRAWL_TEST_BROWSER") == "" {
		t.Skip("set HALLCRAWL_TEST_BROWSER to launch a real browser")
	}

	srv := encodedServer(t, "")
	defer srv.Close()

	cfg := config.DefaultConfig().Browser
	cfg.Bin = os.Getenv("HALLCRAWL_TEST_BROWSER_BIN")
	pool, err := NewBrowserPool(cfg, 15*time.Second, testLogger)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := pool.NewPage(ctx)
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, srv.URL+"/heroes"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	markup, err := page.Markup()
	if err != nil {
		t.Fatalf("markup: %v", err)
	}
	if !strings.Contains(markup, "Brok") {
		t.Errorf("rendered markup missing content: %s", markup)
	}
	if pool.Opened() != 1 {
		t.Errorf("expected 1 page opened, got %d", pool.Opened())
	}

	if err := pool.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if _, err := pool.NewPage(ctx); err == nil {
		t.Error("closed pool should refuse new pages")
	}
}
