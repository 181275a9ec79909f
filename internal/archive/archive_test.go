package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/printshop-tools/kdpcover/internal/dimensions"
	"github.com/printshop-tools/kdpcover/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.HistoryRecord {
	d := dimensions.Calculate(models.BookSpec{TrimSize: "8.5x11", PageCount: 400, PaperType: models.PaperColor, IncludeBleed: true})
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	return []models.HistoryRecord{
		{
			ID:           "a",
			FullCoverURL: "https://cdn.example.com/a-full.png",
			Prompt:       "a lighthouse in a storm",
			Style:        "oil painting",
			TrimSize:     "8.5x11",
			PageCount:    400,
			PaperColor:   models.PaperColor,
			SpineText:    "Storm",
			SpineColor:   "#223344",
			Colors:       []string{"#223344", "#e0e0e0"},
			Dimensions:   &d,
			CreatedAt:    at,
		},
		{
			ID:         "b",
			Prompt:     "a quiet forest",
			TrimSize:   "6x9",
			PageCount:  24,
			PaperColor: models.PaperWhite,
			Colors:     []string{},
			CreatedAt:  at.Add(time.Hour),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"history.parquet", "history.jsonl"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleRecords()

			require.NoError(t, New(path).Write(want))
			got, err := New(path).Load()
			require.NoError(t, err)
			require.Len(t, got, len(want))

			for i := range want {
				assert.Equal(t, want[i].ID, got[i].ID)
				assert.Equal(t, want[i].Prompt, got[i].Prompt)
				assert.Equal(t, want[i].PaperColor, got[i].PaperColor)
				assert.Equal(t, want[i].PageCount, got[i].PageCount)
				assert.Equal(t, want[i].Colors, got[i].Colors)
				assert.True(t, want[i].CreatedAt.Equal(got[i].CreatedAt))
			}

			require.NotNil(t, got[0].Dimensions)
			assert.Equal(t, *want[0].Dimensions, *got[0].Dimensions)
			assert.Nil(t, got[1].Dimensions)
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	assert.Error(t, New(path).Write(sampleRecords()))
	_, err := New(path).Load()
	assert.ErrorContains(t, err, "unsupported file format")
}

func TestLoadJSONLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"ok\"}\n\n{not json}\n"), 0644))

	_, err := New(path).Load()
	assert.ErrorContains(t, err, "line 3")
}

func TestRowDefaults(t *testing.T) {
	rec, err := Row{ID: "x", CreatedAt: 0}.Record()
	require.NoError(t, err)
	assert.NotNil(t, rec.Colors)
	assert.Nil(t, rec.Dimensions)

	_, err = Row{ID: "x", DimensionsJSON: "{"}.Record()
	assert.Error(t, err)
}
