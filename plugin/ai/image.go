package ai

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/disintegration/imaging"
)

// MaxImageDimension bounds the longer side of images sent to the model.
const MaxImageDimension = 1024

// prepareImage returns data with its MIME type, downscaled to fit within
// MaxImageDimension. PNG stays PNG, everything else is re-encoded as JPEG.
// Input that cannot be decoded is sent unchanged.
func prepareImage(data []byte) ([]byte, string) {
	mime := http.DetectContentType(data)
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mime
	}
	b := img.Bounds()
	if b.Dx() <= MaxImageDimension && b.Dy() <= MaxImageDimension {
		return data, mime
	}

	format, outMime := imaging.JPEG, "image/jpeg"
	if mime == "image/png" {
		format, outMime = imaging.PNG, "image/png"
	}
	var buf bytes.Buffer
	resized := imaging.Fit(img, MaxImageDimension, MaxImageDimension, imaging.Lanczos)
	if err := imaging.Encode(&buf, resized, format); err != nil {
		slog.Warn("failed to re-encode image, sending original", "error", err)
		return data, mime
	}
	return buf.Bytes(), outMime
}
