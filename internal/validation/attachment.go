package validation

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"

	"github.com/quill-chat/quill/internal/domain"
)

// Gate decides whether a candidate attachment may start an upload.
// Unauthorized files must never reach the upload controller.
type Gate struct {
	allowed map[string]bool
}

// NewGate builds a gate from a MIME allow-list (e.g. "image/jpeg", "image/png").
func NewGate(allowedMimes []string) *Gate {
	allowed := make(map[string]bool, len(allowedMimes))
	for _, m := range allowedMimes {
		allowed[m] = true
	}
	return &Gate{allowed: allowed}
}

// DefaultGate allows the image types the original allow-list shipped with.
func DefaultGate() *Gate {
	return NewGate([]string{"image/jpeg", "image/png"})
}

// IsAuthorized reports whether the MIME type derived from the file name
// extension is on the allow-list. Unresolvable extensions are rejected.
func (g *Gate) IsAuthorized(fileName string) bool {
	mimeType := ResolveMimeType(fileName)
	if mimeType == "" {
		return false
	}
	return g.allowed[mimeType]
}

// ResolveMimeType derives a MIME type from the file name extension.
// Returns "" when the extension is unknown.
func ResolveMimeType(fileName string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(fileName))
	if mimeType == "" {
		return ""
	}
	// Strip parameters like "; charset=utf-8"
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// Describe builds the attachment metadata for a selected file: resolved MIME
// type plus image dimensions when the payload decodes as an image. A failed
// dimension probe is not an error.
func Describe(fileName string, data []byte) domain.Attachment {
	mimeType := ResolveMimeType(fileName)
	att := domain.Attachment{
		Data:     data,
		FileName: fileName,
		MimeType: mimeType,
	}
	att.ImageWidth, att.ImageHeight = extractImageDimensions(data, mimeType)
	return att
}

func extractImageDimensions(data []byte, mimeType string) (*int, *int) {
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil
	}

	width, height := cfg.Width, cfg.Height
	return &width, &height
}
