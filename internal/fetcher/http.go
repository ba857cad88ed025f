package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// maxProbeBody caps how much of a probed page is read.
const maxProbeBody = 4 << 20

// ProbeResult describes one reachability check.
type ProbeResult struct {
	URL      string
	Status   int
	Encoding string
	Bytes    int
	Title    string
	Latency  time.Duration
}

// OK reports whether the page answered with a 2xx status.
func (r *ProbeResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Probe checks that category roots answer over plain HTTP before a browser
// crawl is started.
type Probe struct {
	client *http.Client
	logger *slog.Logger
}

// NewProbe creates a probe whose requests time out after timeout.
func NewProbe(timeout time.Duration, logger *slog.Logger) *Probe {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  true, // decoded below, including brotli
	}
	return &Probe{
		client: &http.Client{Transport: transport, Timeout: timeout},
		logger: logger.With("component", "probe"),
	}
}

// Ping fetches rawURL and reports its status, size and title.
func (p *Probe) Ping(ctx context.Context, rawURL string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.VisitError{URL: rawURL, Stage: "probe", Err: err}
	}
	req.Header.Set("User-Agent", "hallcrawl/"+config.Version)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &types.VisitError{URL: rawURL, Stage: "probe", Err: err}
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		URL:      rawURL,
		Status:   resp.StatusCode,
		Encoding: resp.Header.Get("Content-Encoding"),
	}

	reader, err := decompressReader(resp, io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return nil, &types.VisitError{URL: rawURL, Stage: "decode", Err: err}
	}
	body, err := io.ReadAll(reader)
	result.Latency = time.Since(start)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &types.VisitError{URL: rawURL, Stage: "read", Err: err}
	}
	result.Bytes = len(body)

	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
			result.Title = strings.TrimSpace(doc.Find("title").First().Text())
		}
	}

	p.logger.Debug("probe complete",
		"url", rawURL,
		"status", result.Status,
		"encoding", result.Encoding,
		"size", result.Bytes,
		"duration", result.Latency,
	)
	return result, nil
}

// Close releases idle connections.
func (p *Probe) Close() {
	p.client.CloseIdleConnections()
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch enc := resp.Header.Get("Content-Encoding"); enc {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	case "", "identity":
		return reader, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
}
