package sourceafis

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/jtejido/go-wsq"
	_ "github.com/spakin/netpbm"
)

// wsqMagic is the WSQ start-of-image marker.
var wsqMagic = []byte{0xFF, 0xA0}

// LoadImage reads a WSQ, PNG, JPEG, GIF or PNM fingerprint image from disk.
func LoadImage(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer f.Close()
	return DecodeImage(f)
}

// LoadImageFromBytes decodes an in-memory image.
func LoadImageFromBytes(data []byte) (*image.Gray, error) {
	return DecodeImage(bytes.NewReader(data))
}

// DecodeImage decodes WSQ, told apart by its start-of-image marker, or any format
// registered with the image package.
func DecodeImage(r io.Reader) (*image.Gray, error) {
	br := bufio.NewReader(r)
	if magic, _ := br.Peek(len(wsqMagic)); bytes.Equal(magic, wsqMagic) {
		img, err := wsq.Decode(br)
		if err != nil {
			return nil, fmt.Errorf("failed to decode WSQ image: %w", err)
		}
		return asGray(img), nil
	}

	img, _, err := image.Decode(br)
	if err != nil {
		return nil, fmt.Errorf("unsupported image format - must be WSQ, PNG, JPEG, GIF or PNM: %w", err)
	}
	return asGray(img), nil
}

func asGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	return toGray(img)
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}
