package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"docgpt/api/internal/diagnose"
)

// DefaultMaxBytes matches the 10MB multipart limit used by the prediction service.
const DefaultMaxBytes = 10 << 20

// MaxPixels bounds the decoded size of an upload. A few hundred KB of compressed
// PNG can claim dimensions that need gigabytes once decoded.
const MaxPixels = 40_000_000

var (
	ErrEmpty           = errors.New("file is empty")
	ErrTooLarge        = errors.New("file is too large")
	ErrUnsupportedType = errors.New("file is not a supported image")
	ErrTooManyPixels   = fmt.Errorf("%w: image dimensions", ErrTooLarge)
)

// allowed matches the formats named on the upload card.
var allowed = []string{"image/png", "image/jpeg"}

type Inspector struct {
	MaxBytes int64
}

func New(maxBytes int64) *Inspector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Inspector{MaxBytes: maxBytes}
}

// ReadAll reads at most MaxBytes from r and reports ErrTooLarge past that.
func (in *Inspector) ReadAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, in.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > in.MaxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, in.MaxBytes)
	}
	return b, nil
}

// Inspect validates the bytes at the boundary and builds the selected image with its preview.
// The bytes are kept as uploaded.
func (in *Inspector) Inspect(name string, data []byte) (diagnose.Image, error) {
	if len(data) == 0 {
		return diagnose.Image{}, ErrEmpty
	}
	if int64(len(data)) > in.MaxBytes {
		return diagnose.Image{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), in.MaxBytes)
	}
	ct, ok := detect(data)
	if !ok {
		return diagnose.Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	if err := checkDimensions(data); err != nil {
		return diagnose.Image{}, err
	}
	img := diagnose.Image{
		Name:        cleanName(name, ct),
		ContentType: ct,
		Data:        data,
	}
	img.Preview = Preview(img)
	return img, nil
}

// Message is the inline text shown for a rejected upload.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmpty):
		return "The selected file is empty."
	case errors.Is(err, ErrTooLarge):
		return "The selected file is too large."
	case errors.Is(err, ErrUnsupportedType):
		return "Please upload a PNG, JPG or JPEG image."
	default:
		return "The selected file could not be read."
	}
}

func detect(data []byte) (string, bool) {
	m := mimetype.Detect(data)
	for _, a := range allowed {
		if m.Is(a) {
			return a, true
		}
	}
	return m.String(), false
}

// checkDimensions reads only the image header.
func checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedType, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

func cleanName(name, ct string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		ext := strings.TrimPrefix(ct, "image/")
		if ext == "jpeg" {
			ext = "jpg"
		}
		return "image." + ext
	}
	return name
}
