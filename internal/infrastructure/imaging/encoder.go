package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"

	"github.com/kirillkom/engineering-analysis-ai/internal/core/domain"
)

const (
	pngMediaType = "image/png"

	// DefaultMaxPixels bounds width*height before any pixel buffer is allocated.
	DefaultMaxPixels = 40_000_000
)

// Encoder normalizes uploads to PNG and renders them for the provider wire.
type Encoder struct {
	png       png.Encoder
	maxPixels int64
}

type Option func(*Encoder)

// WithMaxPixels caps decoded image area; values <= 0 keep the default.
func WithMaxPixels(n int64) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.maxPixels = n
		}
	}
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		png:       png.Encoder{CompressionLevel: png.DefaultCompression},
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode is deterministic: the same image and wire always yield the same output.
// The content decides the format; the declared one is only a hint.
func (e *Encoder) Encode(img domain.ImageAsset, wire domain.ImageWire) (domain.EncodedImage, error) {
	if len(img.Data) == 0 {
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "encode image", fmt.Errorf("image buffer is empty"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "decode image", err)
	}
	if area := int64(cfg.Width) * int64(cfg.Height); area > e.maxPixels {
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "decode image",
			fmt.Errorf("image is %dx%d, above the %d pixel limit", cfg.Width, cfg.Height, e.maxPixels))
	}
	if img.Format != "" && string(img.Format) != format {
		slog.Debug("image_format_mismatch", "filename", img.Filename, "declared", img.Format, "detected", format)
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "decode image", err)
	}

	var buf bytes.Buffer
	if err := e.png.Encode(&buf, decoded); err != nil {
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "encode png", err)
	}

	out := domain.EncodedImage{Wire: wire, MediaType: pngMediaType}
	switch wire {
	case domain.WireBinary:
		out.Bytes = buf.Bytes()
	case domain.WireBase64:
		out.Base64 = base64.StdEncoding.EncodeToString(buf.Bytes())
	default:
		return domain.EncodedImage{}, domain.WrapError(domain.ErrEncoding, "encode image", fmt.Errorf("unsupported wire %q", wire))
	}
	return out, nil
}
