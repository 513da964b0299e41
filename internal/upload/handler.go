// Package upload validates and stores user-supplied variant content. Accepted
// payloads land as files under a spool directory; the wizard keeps only the
// returned reference.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/craftwell/gamesmith/internal/wizard"
)

// Compile-time interface check.
var _ wizard.Uploader = (*Handler)(nil)

// DefaultMaxSize caps upload payloads at 5 MiB.
const DefaultMaxSize = 5 << 20

// previewLen is how much of a text payload is kept as the variant preview.
const previewLen = 140

// allowedTypes is the accepted media-type set: images, audio, and structured
// text that the assembler can reference.
var allowedTypes = map[string]string{
	"image/png":        ".png",
	"image/jpeg":       ".jpg",
	"image/gif":        ".gif",
	"image/svg+xml":    ".svg",
	"audio/wav":        ".wav",
	"audio/mpeg":       ".mp3",
	"audio/ogg":        ".ogg",
	"application/json": ".json",
	"text/plain":       ".txt",
}

// Handler stores uploads on the local filesystem.
type Handler struct {
	// Dir is the spool directory. It is created on first use.
	Dir string

	// MaxSize caps the payload length in bytes. Zero means DefaultMaxSize.
	MaxSize int64
}

// NewHandler creates a Handler spooling into dir.
func NewHandler(dir string) *Handler {
	return &Handler{Dir: dir}
}

// Store validates the payload against the declared media type and size, then
// writes it to the spool directory. All rejections carry ErrValidation so the
// wizard reports them as caller errors rather than provider failures.
func (h *Handler) Store(data []byte, declaredType string, declaredSize int64) (*wizard.StoredUpload, error) {
	maxSize := h.MaxSize
	if maxSize == 0 {
		maxSize = DefaultMaxSize
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("upload: empty payload: %w", wizard.ErrValidation)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("upload: payload is %d bytes, limit %d: %w", len(data), maxSize, wizard.ErrValidation)
	}
	if declaredSize != int64(len(data)) {
		return nil, fmt.Errorf("upload: declared size %d does not match payload size %d: %w",
			declaredSize, len(data), wizard.ErrValidation)
	}

	ext, ok := allowedTypes[declaredType]
	if !ok {
		return nil, fmt.Errorf("upload: media type %q not accepted: %w", declaredType, wizard.ErrValidation)
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create spool dir: %w", err)
	}

	ref := wizard.NewID() + ext
	path := filepath.Join(h.Dir, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("upload: write %s: %w", ref, err)
	}

	return &wizard.StoredUpload{
		Ref:       ref,
		Preview:   preview(data, declaredType),
		MediaType: declaredType,
		Size:      int64(len(data)),
	}, nil
}

// Path returns the absolute spool path for a stored reference.
func (h *Handler) Path(ref string) string {
	return filepath.Join(h.Dir, ref)
}

// preview derives a short human-readable preview. Text payloads show their
// leading content; binary ones just name the type and size.
func preview(data []byte, mediaType string) string {
	if mediaType == "text/plain" || mediaType == "application/json" || mediaType == "image/svg+xml" {
		if utf8.Valid(data) {
			text := strings.TrimSpace(string(data))
			text = strings.ReplaceAll(text, "\n", " ")
			if len(text) > previewLen {
				// Back off to a rune boundary so multibyte text is never cut
				// mid-rune.
				cut := previewLen
				for cut > 0 && !utf8.RuneStart(text[cut]) {
					cut--
				}
				text = text[:cut] + "…"
			}
			return text
		}
	}
	return fmt.Sprintf("%s upload (%d bytes)", mediaType, len(data))
}
