package upload

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
)

// Bounds of the preview box on the upload card.
const (
	PreviewMaxWidth  = 800
	PreviewMaxHeight = 400
)

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Preview returns a data URL for display. Images larger than the preview box are
// downscaled; anything that does not decode is embedded as is. Callers bound the
// pixel count first, see Inspector.Inspect.
func Preview(img diagnose.Image) string {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return MakeDataURL(img.ContentType, img.Data)
	}
	if cfg.Width <= PreviewMaxWidth && cfg.Height <= PreviewMaxHeight {
		return MakeDataURL(img.ContentType, img.Data)
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return MakeDataURL(img.ContentType, img.Data)
	}

	thumb := resize.Thumbnail(PreviewMaxWidth, PreviewMaxHeight, src, resize.Lanczos3)
	var out bytes.Buffer
	if err := jpeg.Encode(&out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		log.WithError(err).Warn("preview encode failed, embedding original")
		return MakeDataURL(img.ContentType, img.Data)
	}
	return MakeDataURL("image/jpeg", out.Bytes())
}
