package layer

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/draw"
	"image/png"
	"io"
	"strings"

	"github.com/matzehuels/gradlab/pkg/errors"
)

// MIMEType is the media type of an encoded layer.
const MIMEType = "image/png"

const dataURLPrefix = "data:" + MIMEType + ";base64,"

var encoder = png.Encoder{CompressionLevel: png.BestSpeed}

// Encode writes the layer as an 8-bit grayscale PNG. The encoding is lossless:
// [Decode] reproduces the exact buffer.
func Encode(l *EditLayer) ([]byte, error) {
	var buf bytes.Buffer
	if err := encoder.Encode(&buf, l.img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode %dx%d layer", l.Width(), l.Height())
	}
	return buf.Bytes(), nil
}

// Decode reads an encoded layer. Grayscale images are copied verbatim; other
// color models are converted through color.GrayModel. If width and height are
// positive the decoded size must match them.
func Decode(r io.Reader, width, height int) (*EditLayer, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layer")
	}
	b := img.Bounds()
	if width > 0 && height > 0 && (b.Dx() != width || b.Dy() != height) {
		return nil, errors.New(errors.ErrCodeInvalidFormat,
			"layer is %dx%d, want %dx%d", b.Dx(), b.Dy(), width, height)
	}
	if g, ok := img.(*image.Gray); ok {
		return FromGray(g), nil
	}
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return &EditLayer{img: g}, nil
}

// DataURL wraps encoded PNG bytes in a data URL envelope.
func DataURL(data []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data)
}

// StripEnvelope removes a "data:<mime>;base64," envelope and returns the bare
// base64 payload. Strings without an envelope are returned unchanged.
func StripEnvelope(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

// DecodeDataURL decodes a layer from a data URL or a bare base64 payload.
func DecodeDataURL(s string, width, height int) (*EditLayer, error) {
	data, err := base64.StdEncoding.DecodeString(StripEnvelope(s))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode base64 payload")
	}
	return Decode(bytes.NewReader(data), width, height)
}
