package images

import (
	"fmt"
	"strings"
)

// Load stages reported in AssetLoadError.Op
const (
	OpFetch   = "fetch"
	OpStatus  = "status"
	OpRead    = "read"
	OpDecode  = "decode"
	OpTimeout = "timeout"
	OpSource  = "source"
)

// AssetLoadError is returned for every failure to turn a source into pixels
type AssetLoadError struct {
	Source string
	Op     string
	Err    error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("failed to load asset %s (%s): %v", DisplaySource(e.Source), e.Op, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

// DisplaySource shortens inline data URIs so they are safe to log
func DisplaySource(src string) string {
	if strings.HasPrefix(src, "data:") {
		if i := strings.IndexByte(src, ','); i > 0 {
			return src[:i] + ",..."
		}
		return "data:..."
	}
	if len(src) > 200 {
		return src[:200] + "..."
	}
	return src
}
