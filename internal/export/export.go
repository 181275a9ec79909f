// Package export writes print-ready PNG files tagged with their resolution.
package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
)

// ExportError reports a failed export for one destination
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("failed to export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

const inchesPerMeter = 39.3700787

var errNotPNG = errors.New("data is not a PNG")

// EncodePNG encodes img and tags it with dpi
func EncodePNG(img image.Image, dpi int) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return WithDPI(buf.Bytes(), dpi)
}

// WithDPI returns a copy of data with a pHYs chunk declaring dpi. Any
// existing pHYs chunk is replaced.
func WithDPI(data []byte, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid DPI %d", dpi)
	}
	chunks, err := splitChunks(data)
	if err != nil {
		return nil, err
	}

	ppm := uint32(math.Round(float64(dpi) * inchesPerMeter))
	phys := make([]byte, 9)
	binary.BigEndian.PutUint32(phys[0:4], ppm)
	binary.BigEndian.PutUint32(phys[4:8], ppm)
	phys[8] = 1 // unit: metre

	out := bytes.NewBuffer(make([]byte, 0, len(data)+21))
	out.Write(pngSignature)
	for _, c := range chunks {
		if c.typ == "pHYs" {
			continue
		}
		writeChunk(out, c.typ, c.data)
		if c.typ == "IHDR" {
			writeChunk(out, "pHYs", phys)
		}
	}
	return out.Bytes(), nil
}

// ReadDPI returns the horizontal resolution declared by data's pHYs chunk
func ReadDPI(data []byte) (int, bool) {
	chunks, err := splitChunks(data)
	if err != nil {
		return 0, false
	}
	for _, c := range chunks {
		if c.typ == "pHYs" && len(c.data) == 9 && c.data[8] == 1 {
			ppm := binary.BigEndian.Uint32(c.data[0:4])
			return int(math.Round(float64(ppm) / inchesPerMeter)), true
		}
	}
	return 0, false
}

// WriteFile tags data with dpi and writes it to path atomically
func WriteFile(path string, data []byte, dpi int) error {
	tagged, err := WithDPI(data, dpi)
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".export-*.png")
	if err != nil {
		return &ExportError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(tagged); err != nil {
		tmp.Close()
		return &ExportError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ExportError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &ExportError{Path: path, Err: err}
	}

	slog.Info("Exported cover", "path", path, "bytes", len(tagged), "dpi", dpi)
	return nil
}

type chunk struct {
	typ  string
	data []byte
}

func splitChunks(data []byte) ([]chunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errNotPNG
	}
	var chunks []chunk
	rest := data[len(pngSignature):]
	for len(rest) > 0 {
		if len(rest) < 12 {
			return nil, fmt.Errorf("truncated PNG chunk")
		}
		n := binary.BigEndian.Uint32(rest[0:4])
		if uint64(n)+12 > uint64(len(rest)) {
			return nil, fmt.Errorf("truncated PNG chunk")
		}
		typ := string(rest[4:8])
		chunks = append(chunks, chunk{typ: typ, data: rest[8 : 8+n]})
		rest = rest[12+n:]
		if typ == "IEND" {
			break
		}
	}
	if len(chunks) == 0 || chunks[0].typ != "IHDR" {
		return nil, fmt.Errorf("PNG does not start with IHDR")
	}
	return chunks, nil
}

func writeChunk(w *bytes.Buffer, typ string, data []byte) {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(data)))
	copy(hdr[4:8], typ)
	w.Write(hdr[:])
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write(hdr[4:8])
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	w.Write(sum[:])
}
