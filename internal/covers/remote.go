package covers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/fallback"
	"github.com/printshop-tools/kdpcover/internal/images"
)

// RemoteCompositor hands assembly to an external composite service. The
// service accepts a job, which is polled until it yields a PNG URL.
type RemoteCompositor struct {
	BaseURL    string
	HTTPClient *http.Client
	Fetcher    compositor.AssetFetcher
	Poll       fallback.PollOptions

	// Timeout bounds a whole Assemble call, polling and download included
	Timeout time.Duration
}

func NewRemoteCompositor(baseURL string, fetcher compositor.AssetFetcher) *RemoteCompositor {
	return &RemoteCompositor{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: compositor.DefaultTimeout},
		Fetcher:    fetcher,
		Poll:       fallback.DefaultPollOptions,
		Timeout:    compositor.DefaultTimeout,
	}
}

type remoteRequest struct {
	Front      string   `json:"front"`
	Back       string   `json:"back,omitempty"`
	Interior   []string `json:"interior,omitempty"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	SpineWidth int      `json:"spineWidth"`
	SpineColor string   `json:"spineColor"`
	SpineText  string   `json:"spineText,omitempty"`
	Title      string   `json:"title,omitempty"`
	Author     string   `json:"author,omitempty"`
}

type remoteJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"error"`
}

const (
	jobCompleted = "completed"
	jobFailed    = "failed"
)

// Assemble implements Assembler
func (r *RemoteCompositor) Assemble(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = compositor.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := p.Dimensions
	var job remoteJob
	err := r.do(ctx, http.MethodPost, r.BaseURL+"/composite", remoteRequest{
		Front:      p.Front,
		Back:       p.Back,
		Interior:   p.Interior,
		Width:      d.FullWrapWidthPx,
		Height:     d.FullWrapHeightPx,
		SpineWidth: d.SpineWidthPx,
		SpineColor: p.Spine.Color,
		SpineText:  p.Spine.Text,
		Title:      p.Title,
		Author:     p.Author,
	}, &job)
	if err != nil {
		return nil, err
	}

	if job.Status != jobCompleted {
		res := fallback.Poll(ctx, r.Poll, func(ctx context.Context) (fallback.Status[remoteJob], error) {
			var cur remoteJob
			if err := r.do(ctx, http.MethodGet, r.BaseURL+"/composite/"+job.ID, nil, &cur); err != nil {
				return fallback.Status[remoteJob]{}, err
			}
			return fallback.Status[remoteJob]{
				Done:   cur.Status == jobCompleted,
				Failed: cur.Status == jobFailed,
				Value:  cur,
				Reason: cur.Error,
			}, nil
		})
		switch res.State {
		case fallback.Failed:
			return nil, fmt.Errorf("composite job %s failed: %s", job.ID, res.Reason)
		case fallback.TimedOut:
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("composite job %s: %w", job.ID, err)
			}
			return nil, fmt.Errorf("composite job %s did not finish after %d checks: %s", job.ID, res.Attempts, res.Reason)
		}
		job = res.Value
	}

	if job.URL == "" {
		return nil, fmt.Errorf("composite job %s returned no image", job.ID)
	}
	data, err := r.Fetcher.Fetch(ctx, job.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch composite: %w", err)
	}
	img, err := images.Decode(job.URL, data)
	if err != nil {
		return nil, err
	}

	// the service may return any size; normalise to the print canvas
	canvas := imaging.Resize(img, d.FullWrapWidthPx, d.FullWrapHeightPx, imaging.Lanczos)
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode composite: %w", err)
	}
	return &compositor.Result{
		PNG:     buf.Bytes(),
		Image:   canvas,
		Regions: compositor.ComputeRegions(d),
	}, nil
}

func (r *RemoteCompositor) do(ctx context.Context, method, url string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(msg))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
