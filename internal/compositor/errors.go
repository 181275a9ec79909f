package compositor

import (
	"errors"
	"fmt"
)

// Asset names used in AssemblyError
const (
	AssetFront  = "front"
	AssetBack   = "back"
	AssetCanvas = "canvas"
	AssetSpine  = "spine"
)

// ErrAssetTooLarge marks a source over its size limit; retrying cannot help
var ErrAssetTooLarge = errors.New("asset too large")

// InteriorAsset names the i-th interior preview
func InteriorAsset(i int) string {
	return fmt.Sprintf("interior[%d]", i)
}

// AssemblyError reports which asset prevented a composite from being built
type AssemblyError struct {
	Asset string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("failed to assemble cover: %s: %v", e.Asset, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
