// Package archive moves cover history in and out of Parquet and JSONL files.
package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/printshop-tools/kdpcover/internal/models"
)

// Row is the flat Parquet shape of a history record
type Row struct {
	ID             string   `parquet:"id"`
	ImageURL       string   `parquet:"image_url,optional"`
	FullCoverURL   string   `parquet:"full_cover_url,optional"`
	FrontCoverURL  string   `parquet:"front_cover_url,optional"`
	Prompt         string   `parquet:"prompt"`
	Style          string   `parquet:"style,optional"`
	TrimSize       string   `parquet:"trim_size"`
	PageCount      int64    `parquet:"page_count"`
	PaperColor     string   `parquet:"paper_color"`
	BookType       string   `parquet:"book_type,optional"`
	SpineText      string   `parquet:"spine_text,optional"`
	SpineColor     string   `parquet:"spine_color,optional"`
	Colors         []string `parquet:"colors,list"`
	DimensionsJSON string   `parquet:"dimensions_json,optional"`
	CreatedAt      int64    `parquet:"created_at"`
}

// ToRow flattens a record
func ToRow(rec models.HistoryRecord) (Row, error) {
	row := Row{
		ID:            rec.ID,
		ImageURL:      rec.ImageURL,
		FullCoverURL:  rec.FullCoverURL,
		FrontCoverURL: rec.FrontCoverURL,
		Prompt:        rec.Prompt,
		Style:         rec.Style,
		TrimSize:      rec.TrimSize,
		PageCount:     int64(rec.PageCount),
		PaperColor:    string(rec.PaperColor),
		BookType:      rec.BookType,
		SpineText:     rec.SpineText,
		SpineColor:    rec.SpineColor,
		Colors:        rec.Colors,
		CreatedAt:     rec.CreatedAt.UnixMilli(),
	}
	if rec.Dimensions != nil {
		b, err := json.Marshal(rec.Dimensions)
		if err != nil {
			return Row{}, fmt.Errorf("failed to marshal dimensions: %w", err)
		}
		row.DimensionsJSON = string(b)
	}
	return row, nil
}

// Record expands a row
func (r Row) Record() (models.HistoryRecord, error) {
	rec := models.HistoryRecord{
		ID:            r.ID,
		ImageURL:      r.ImageURL,
		FullCoverURL:  r.FullCoverURL,
		FrontCoverURL: r.FrontCoverURL,
		Prompt:        r.Prompt,
		Style:         r.Style,
		TrimSize:      r.TrimSize,
		PageCount:     int(r.PageCount),
		PaperColor:    models.PaperType(r.PaperColor),
		BookType:      r.BookType,
		SpineText:     r.SpineText,
		SpineColor:    r.SpineColor,
		Colors:        r.Colors,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
	}
	if rec.Colors == nil {
		rec.Colors = []string{}
	}
	if r.DimensionsJSON != "" {
		var d models.Dimensions
		if err := json.Unmarshal([]byte(r.DimensionsJSON), &d); err != nil {
			return models.HistoryRecord{}, fmt.Errorf("failed to decode dimensions for %s: %w", r.ID, err)
		}
		rec.Dimensions = &d
	}
	return rec, nil
}

// Archive reads and writes one history file; the format follows the extension
type Archive struct {
	path string
}

func New(path string) *Archive {
	return &Archive{path: path}
}

func (a *Archive) format() (string, error) {
	ext := strings.ToLower(filepath.Ext(a.path))
	switch ext {
	case ".parquet":
		return "parquet", nil
	case ".jsonl", ".json":
		return "jsonl", nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// Write replaces the file with recs
func (a *Archive) Write(recs []models.HistoryRecord) error {
	format, err := a.format()
	if err != nil {
		return err
	}

	file, err := os.Create(a.path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	if format == "parquet" {
		err = writeParquet(file, recs)
	} else {
		err = writeJSONL(file, recs)
	}
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close archive file: %w", cerr)
	}
	if err == nil {
		slog.Debug("Wrote history archive", "path", a.path, "format", format, "records", len(recs))
	}
	return err
}

func writeParquet(w io.Writer, recs []models.HistoryRecord) error {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		row, err := ToRow(rec)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	writer := parquet.NewGenericWriter[Row](w)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

func writeJSONL(w io.Writer, recs []models.HistoryRecord) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
	}
	return bw.Flush()
}

// Load reads every record in the file
func (a *Archive) Load() ([]models.HistoryRecord, error) {
	format, err := a.format()
	if err != nil {
		return nil, err
	}
	if format == "parquet" {
		return a.loadParquet()
	}
	return a.loadJSONL()
}

func (a *Archive) loadJSONL() ([]models.HistoryRecord, error) {
	slog.Debug("Opening JSONL file", "path", a.path)

	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file: %w", err)
	}
	defer file.Close()

	var records []models.HistoryRecord
	scanner := bufio.NewScanner(file)

	// data URIs make for long lines
	const maxCapacity = 32 * 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var rec models.HistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		if rec.Colors == nil {
			rec.Colors = []string{}
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading archive: %w", err)
	}

	slog.Debug("Finished reading JSONL file", "total_records", len(records), "total_lines", lineNum)
	return records, nil
}

func (a *Archive) loadParquet() ([]models.HistoryRecord, error) {
	slog.Debug("Opening Parquet file", "path", a.path)

	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var records []models.HistoryRecord
	rows := make([]Row, 128)

	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			rec, cerr := row.Record()
			if cerr != nil {
				return nil, cerr
			}
			records = append(records, rec)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}

	slog.Debug("Finished reading Parquet file", "total_records", len(records))
	return records, nil
}
