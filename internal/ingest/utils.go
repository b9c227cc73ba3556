package ingest

import (
	"path/filepath"

	"github.com/joseph-ayodele/invoice-processor/constants"
)

// Supported reports whether name carries an extension the processor can read.
func Supported(name string) bool {
	return constants.MapExtToFormat(filepath.Ext(name)) != ""
}

// IsHidden reports whether the last element of path is a dotfile.
func IsHidden(path string) bool {
	switch base := filepath.Base(path); base {
	case ".", "..":
		return false
	default:
		return base[0] == '.'
	}
}
