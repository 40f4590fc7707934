package ai

import (
	"strings"
)

// DecodeImageRef turns an opaque image reference into an inline attachment.
// Accepted forms: a data URL ("data:image/png;base64,....") or bare base64
// (assumed JPEG). Hosted http(s) URLs cannot be inlined without fetching
// pixel bytes, which this layer never does; those return ok=false and the
// caller proceeds text-only.
func DecodeImageRef(ref string) (ImagePart, bool) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ImagePart{}, false
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ImagePart{}, false
	case strings.HasPrefix(ref, "data:"):
		rest := strings.TrimPrefix(ref, "data:")
		meta, data, ok := strings.Cut(rest, ",")
		if !ok || data == "" {
			return ImagePart{}, false
		}
		mimeType := strings.TrimSuffix(meta, ";base64")
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		return ImagePart{MIMEType: mimeType, Data: data}, true
	default:
		return ImagePart{MIMEType: "image/jpeg", Data: ref}, true
	}
}

// DecodeImageRefs maps a report's image list onto inline parts, keeping at
// most max and silently skipping references that cannot be inlined.
func DecodeImageRefs(refs []string, max int) []ImagePart {
	var out []ImagePart
	for _, r := range refs {
		if len(out) >= max {
			break
		}
		if p, ok := DecodeImageRef(r); ok {
			out = append(out, p)
		}
	}
	return out
}

func clampConfidence(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(v)
	}
}
