package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/printshop-tools/kdpcover/internal/archive"
	"github.com/printshop-tools/kdpcover/internal/export"
	"github.com/printshop-tools/kdpcover/internal/models"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("KDPCOVER_MAX_PAGES", "")
	t.Setenv("KDPCOVER_HISTORY_DB", "")

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 20, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestDimensionsCommand(t *testing.T) {
	out, _, err := run(t, "dimensions", "--trim", "6x9", "--pages", "300", "--paper", "white")
	require.NoError(t, err)

	var d models.Dimensions
	require.NoError(t, yaml.Unmarshal([]byte(out), &d))
	assert.Equal(t, 203, d.SpineWidthPx)
	assert.Equal(t, 3878, d.FullWrapWidthPx)
	assert.Equal(t, 2775, d.FullWrapHeightPx)

	_, stderr, err := run(t, "dimensions", "--pages", "2", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "clamped to 24")
	assert.Contains(t, stderr, "too narrow")

	_, _, err = run(t, "dimensions", "-o", "xml")
	assert.Error(t, err)
}

func TestTrimSizesCommand(t *testing.T) {
	out, _, err := run(t, "trim-sizes")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "8.5x11")
}

func TestAssembleCommand(t *testing.T) {
	dir := t.TempDir()
	front := filepath.Join(dir, "front.png")
	writePNG(t, front, color.NRGBA{R: 200, A: 255})
	out := filepath.Join(dir, "cover.png")

	stdout, _, err := run(t, "assemble", "--front", front, "--trim", "5x8", "--pages", "300", "--spine-text", "Title", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "3278x2475")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	dpi, ok := export.ReadDPI(data)
	require.True(t, ok)
	assert.Equal(t, 300, dpi)
}

func TestColorsCommand(t *testing.T) {
	front := filepath.Join(t.TempDir(), "front.png")
	writePNG(t, front, color.NRGBA{G: 200, A: 255})

	out, _, err := run(t, "colors", front, "-o", "yaml")
	require.NoError(t, err)
	var p models.ExtractedPalette
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	assert.Equal(t, "#00c000", p.DominantColor)
}

func TestHistoryImportExport(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KDPCOVER_HISTORY_DB", filepath.Join(dir, "history.db"))

	in := filepath.Join(dir, "in.jsonl")
	require.NoError(t, archive.New(in).Write([]models.HistoryRecord{
		{ID: "a", Prompt: "a fox", TrimSize: "6x9", PageCount: 300, PaperColor: models.PaperWhite, Colors: []string{"#112233"}},
		{ID: "b", Prompt: "a heron", TrimSize: "5x8", PageCount: 120, PaperColor: models.PaperCream, Colors: []string{}},
	}))

	root := func(args ...string) (string, error) {
		t.Helper()
		cmd := NewRootCmd()
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "none.yaml")}, args...))
		err := cmd.ExecuteContext(context.Background())
		return stdout.String(), err
	}

	stdout, err := root("history", "import", "--in", in)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Imported 2 records")

	stdout, err = root("history", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "a heron")

	out := filepath.Join(dir, "out.parquet")
	_, err = root("history", "export", "--out", out)
	require.NoError(t, err)

	recs, err := archive.New(out).Load()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
