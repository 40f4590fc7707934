package constants

import "strings"

// AllowedImageExtensions holds the image extensions accepted for report photos.
var AllowedImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// MaxReportImages caps how many photos a single report may carry.
const MaxReportImages = 5

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
