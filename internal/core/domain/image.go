package domain

import (
	"encoding/base64"
	"strings"
)

type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatGIF  ImageFormat = "gif"
)

// ImageAsset is an uploaded image as received from the user.
type ImageAsset struct {
	Filename string
	Format   ImageFormat
	Data     []byte
}

// ImageFormatFromName guesses the format from a filename or MIME type.
func ImageFormatFromName(name string) (ImageFormat, bool) {
	value := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(value, ".png"), value == "image/png":
		return ImageFormatPNG, true
	case strings.HasSuffix(value, ".jpg"), strings.HasSuffix(value, ".jpeg"), value == "image/jpeg", value == "image/jpg":
		return ImageFormatJPEG, true
	case strings.HasSuffix(value, ".gif"), value == "image/gif":
		return ImageFormatGIF, true
	default:
		return "", false
	}
}

// ImageWire is the representation a vision provider expects on the wire.
type ImageWire string

const (
	// WireBinary is raw bytes, used for octet-stream and multipart uploads.
	WireBinary ImageWire = "binary"
	// WireBase64 is standard base64 text embedded in a JSON payload.
	WireBase64 ImageWire = "base64"
)

// EncodedImage is the Encoder output.
type EncodedImage struct {
	Wire      ImageWire
	MediaType string
	Bytes     []byte
	Base64    string
}

// DataURL renders the image as a data: URL, encoding on demand for binary wire.
func (e EncodedImage) DataURL() string {
	payload := e.Base64
	if payload == "" && len(e.Bytes) > 0 {
		payload = base64.StdEncoding.EncodeToString(e.Bytes)
	}
	return "data:" + e.MediaType + ";base64," + payload
}
