// Package gateway is the subprocess boundary to the external extraction
// tool. Invocations always use an argument vector, never a shell string, so
// untrusted URLs and format ids cannot inject commands.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mediadlapi/internal/models"
)

const defaultBinary = "yt-dlp"

// ExtractionError reports a failed or unparseable probe. Output carries the
// tool's raw diagnostics.
type ExtractionError struct {
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return "extraction failed: " + e.Output
	}
	return "extraction failed: " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FetchError reports a failed download invocation.
type FetchError struct {
	Output string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Output != "" {
		return "fetch failed: " + e.Output
	}
	return "fetch failed: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

type Config struct {
	Binary       string
	ProbeTimeout time.Duration
	FetchTimeout time.Duration
}

type Gateway struct {
	cfg Config
	sem chan struct{}
}

// New returns a gateway capped at maxConcurrent simultaneous fetches.
// Probes are not capped; they are short and cheap compared to downloads.
func New(cfg Config, maxConcurrent int) *Gateway {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	return &Gateway{cfg: cfg, sem: make(chan struct{}, maxConcurrent)}
}

func (g *Gateway) withPermit(ctx context.Context, fn func() error) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()
	return fn()
}

// probeResult is the subset of yt-dlp's --dump-json output this service
// reads. Metadata payloads run to tens of megabytes for some platforms;
// stdout is buffered in memory without an artificial cap.
type probeResult struct {
	Title     string             `json:"title"`
	Thumbnail string             `json:"thumbnail"`
	Duration  float64            `json:"duration"`
	Uploader  string             `json:"uploader"`
	Creator   string             `json:"creator"`
	Channel   string             `json:"channel"`
	Formats   []models.RawFormat `json:"formats"`
}

// Probe asks the extractor for single-item metadata describing the URL's
// available encodings.
func (g *Gateway) Probe(ctx context.Context, mediaURL string) (*models.MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.cfg.Binary, "--dump-json", "--no-playlist", mediaURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ExtractionError{Output: strings.TrimSpace(stderr.String()), Err: err}
	}

	var res probeResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return nil, &ExtractionError{Output: fmt.Sprintf("unparseable metadata: %v", err), Err: err}
	}

	author := res.Uploader
	if author == "" {
		author = res.Creator
	}
	if author == "" {
		author = res.Channel
	}
	if author == "" {
		author = "Desconocido"
	}

	return &models.MediaInfo{
		Title:     res.Title,
		Thumbnail: res.Thumbnail,
		Duration:  int(res.Duration),
		Author:    author,
		Formats:   res.Formats,
	}, nil
}

// Fetch downloads the URL with the given selector into the output template,
// merging separate video/audio streams into a single mp4 when needed. The
// call blocks until the transfer and any local remux complete; cancelling
// ctx kills the subprocess.
func (g *Gateway) Fetch(ctx context.Context, mediaURL, selector, outputTemplate string) error {
	return g.withPermit(ctx, func() error {
		ctx, cancel := context.WithTimeout(ctx, g.cfg.FetchTimeout)
		defer cancel()

		args := []string{
			"-f", selector,
			"--merge-output-format", "mp4",
			"-o", outputTemplate,
			"--no-playlist",
			mediaURL,
		}
		cmd := exec.CommandContext(ctx, g.cfg.Binary, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return &FetchError{Output: lastLines(string(out), 5), Err: err}
		}
		return nil
	})
}

// Version reports the extractor binary's version, for self-tests.
func (g *Gateway) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, g.cfg.Binary, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// lastLines trims subprocess output to its tail, where yt-dlp puts the
// actionable error.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
