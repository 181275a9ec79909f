package covers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/printshop-tools/kdpcover/internal/compositor"
	"github.com/printshop-tools/kdpcover/internal/fallback"
	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type assembleFunc func(ctx context.Context, p compositor.Params) (*compositor.Result, error)

func (f assembleFunc) Assemble(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
	return f(ctx, p)
}

type paletteFunc func(ctx context.Context, source string) models.ExtractedPalette

func (f paletteFunc) Extract(ctx context.Context, source string) models.ExtractedPalette {
	return f(ctx, source)
}

type bytesFetcher []byte

func (b bytesFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	return b, nil
}

func testParams() compositor.Params {
	return compositor.Params{
		Front: "https://cdn.example.com/front.png",
		Dimensions: models.Dimensions{
			SpineWidthIn:     0.5,
			FrontWidthPx:     85,
			SpineWidthPx:     20,
			FullWrapWidthPx:  200,
			FullWrapHeightPx: 150,
			BleedPx:          5,
		},
		Spine: models.SpineConfig{Color: "#112233"},
	}
}

// failingThen fails the first n calls
func failingThen(n int32) (Assembler, *int32) {
	var calls int32
	return assembleFunc(func(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
		if atomic.AddInt32(&calls, 1) <= n {
			return nil, errors.New("canvas busy")
		}
		return &compositor.Result{PNG: []byte("ok")}, nil
	}), &calls
}

func fixedPalette() PaletteExtractor {
	return paletteFunc(func(ctx context.Context, source string) models.ExtractedPalette {
		return models.ExtractedPalette{Colors: []string{"#102030"}, DominantColor: "#102030"}
	})
}

func TestBuildStrategies(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		wantCalls int32
		strategy  string
	}{
		{name: "first try", failures: 0, wantCalls: 1, strategy: StrategyLocal},
		{name: "second retry", failures: 2, wantCalls: 3, strategy: "local retry 2"},
		{name: "placeholder after retries", failures: 10, wantCalls: 3, strategy: StrategyPlaceholder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, calls := failingThen(tt.failures)
			w := New(local, nil, fixedPalette())
			w.RetryDelay = time.Millisecond

			cover, err := w.Build(context.Background(), testParams())
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, cover.Strategy)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
			assert.Equal(t, "#102030", cover.Palette.DominantColor)
			require.NotNil(t, cover.Result)
		})
	}
}

func TestPlaceholderComposite(t *testing.T) {
	p := testParams()
	p.ShowGuides = true
	res, err := Placeholder(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 200, 150), res.Image.Bounds())
	assert.Contains(t, res.Warnings, placeholderWarning)
	assert.Len(t, res.Guides, 3)

	spine := color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff}
	assert.Equal(t, spine, res.Image.NRGBAAt(100, 75))
	assert.Equal(t, spine, res.Image.NRGBAAt(150, 75))

	decoded, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, res.Image.Bounds(), decoded.Bounds())
}

func TestBuildValidation(t *testing.T) {
	local, calls := failingThen(0)
	w := New(local, nil, fixedPalette())

	p := testParams()
	p.Front = ""
	_, err := w.Build(context.Background(), p)

	var asmErr *compositor.AssemblyError
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, compositor.AssetFront, asmErr.Asset)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestBuildDoesNotRetryOversizedInterior(t *testing.T) {
	var calls atomic.Int32
	local := assembleFunc(func(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
		calls.Add(1)
		return nil, &compositor.AssemblyError{
			Asset: compositor.InteriorAsset(1),
			Err:   fmt.Errorf("%w: image is 3000000 bytes", compositor.ErrAssetTooLarge),
		}
	})
	w := New(local, nil, fixedPalette())
	w.RetryDelay = time.Millisecond

	p := testParams()
	p.Interior = []string{"small.png", "huge.png"}
	_, err := w.Build(context.Background(), p)

	var asmErr *compositor.AssemblyError
	require.ErrorAs(t, err, &asmErr)
	assert.Equal(t, "interior[1]", asmErr.Asset)
	assert.ErrorIs(t, err, compositor.ErrAssetTooLarge)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildRunsPaletteAndAssemblyConcurrently(t *testing.T) {
	paletteStarted := make(chan struct{})
	assemblyStarted := make(chan struct{})
	var sawOther atomic.Int32

	wait := func(ch chan struct{}) {
		select {
		case <-ch:
			sawOther.Add(1)
		case <-time.After(2 * time.Second):
		}
	}

	local := assembleFunc(func(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
		close(assemblyStarted)
		wait(paletteStarted)
		return &compositor.Result{}, nil
	})
	pal := paletteFunc(func(ctx context.Context, source string) models.ExtractedPalette {
		close(paletteStarted)
		wait(assemblyStarted)
		return models.ExtractedPalette{Colors: []string{}, DominantColor: "#333333"}
	})

	_, err := New(local, nil, pal).Build(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, int32(2), sawOther.Load())
}

func TestRemoteCompositor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/composite":
			var req remoteRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 200, req.Width)
			assert.Equal(t, 20, req.SpineWidth)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(remoteJob{ID: "job1", Status: "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/composite/job1":
			if polls.Add(1) < 2 {
				_ = json.NewEncoder(w).Encode(remoteJob{ID: "job1", Status: "running"})
				return
			}
			_ = json.NewEncoder(w).Encode(remoteJob{ID: "job1", Status: "completed", URL: "https://cdn.example.com/wrap.png"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	remote := NewRemoteCompositor(srv.URL+"/", bytesFetcher(buf.Bytes()))
	remote.Poll = fallback.PollOptions{Initial: time.Millisecond, Max: 2 * time.Millisecond, MaxAttempts: 5}

	local, _ := failingThen(100)
	w := New(local, remote, fixedPalette())
	w.RetryDelay = time.Millisecond

	cover, err := w.Build(context.Background(), testParams())
	require.NoError(t, err)
	assert.Equal(t, StrategyRemote, cover.Strategy)
	assert.Equal(t, image.Rect(0, 0, 200, 150), cover.Result.Image.Bounds())
	assert.Equal(t, int32(2), polls.Load())
}

func TestRemoteCompositorJobFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(remoteJob{ID: "j", Status: "queued"})
			return
		}
		_ = json.NewEncoder(w).Encode(remoteJob{ID: "j", Status: "failed", Error: "bad front"})
	}))
	defer srv.Close()

	remote := NewRemoteCompositor(srv.URL, bytesFetcher(nil))
	remote.Poll = fallback.PollOptions{Initial: time.Millisecond, MaxAttempts: 3}

	_, err := remote.Assemble(context.Background(), testParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad front")
}

func TestRemoteCompositorBoundedByTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(remoteJob{ID: "slow", Status: "running"})
	}))
	defer srv.Close()

	remote := NewRemoteCompositor(srv.URL, bytesFetcher(nil))
	remote.Poll = fallback.PollOptions{Initial: 10 * time.Millisecond, Max: 10 * time.Millisecond, MaxAttempts: 100000}
	remote.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := remote.Assemble(context.Background(), testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSessionGenerations(t *testing.T) {
	local, _ := failingThen(0)
	s := NewSession(New(local, nil, fixedPalette()))

	spec := models.BookSpec{TrimSize: "6x9", PageCount: 120, PaperType: models.PaperCream, IncludeBleed: true}
	g1 := s.Update(spec, "front-a")
	assert.Equal(t, uint64(1), g1)
	assert.Equal(t, g1, s.Update(spec, "front-a"))

	cover, err := s.Build(context.Background(), g1, testParams())
	require.NoError(t, err)
	assert.Equal(t, g1, cover.Generation)
	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, cover.Strategy, current.Strategy)
	assert.Equal(t, g1, current.Generation)
	assert.Nil(t, current.Result, "sessions keep no bitmap")
	assert.NotNil(t, cover.Result)

	spec.PageCount = 200
	g2 := s.Update(spec, "front-a")
	assert.Equal(t, uint64(2), g2)
	assert.Nil(t, s.Current())

	_, err = s.Build(context.Background(), g1, testParams())
	assert.ErrorIs(t, err, ErrStale)
}

func TestSessionDiscardsSupersededBuild(t *testing.T) {
	started := make(chan struct{})
	local := assembleFunc(func(ctx context.Context, p compositor.Params) (*compositor.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := New(local, nil, fixedPalette())
	s := NewSession(w)

	spec := models.BookSpec{TrimSize: "6x9", PageCount: 300, PaperType: models.PaperWhite}
	gen := s.Update(spec, "front-a")

	errc := make(chan error, 1)
	go func() {
		_, err := s.Build(context.Background(), gen, testParams())
		errc <- err
	}()

	<-started
	s.Update(spec, "front-b")

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded build was not cancelled")
	}
	assert.Nil(t, s.Current())
}
