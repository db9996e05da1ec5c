package qr

import (
	"context"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// DefaultColor is used when no foreground color is configured.
const DefaultColor = "#000000"

// PNGRenderer draws QR codes with skip2/go-qrcode.
type PNGRenderer struct {
	size int
}

// NewPNGRenderer renders square images of size pixels.
func NewPNGRenderer(size int) *PNGRenderer {
	if size <= 0 {
		size = 256
	}

	return &PNGRenderer{size: size}
}

func (r *PNGRenderer) Render(ctx context.Context, payload, hexColor string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fg, err := ParseHexColor(hexColor)
	if err != nil {
		return nil, err
	}

	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	code.ForegroundColor = fg
	code.BackgroundColor = color.White

	return code.PNG(r.size)
}

// ParseHexColor accepts #RGB or #RRGGBB. An empty string means DefaultColor.
func ParseHexColor(s string) (color.RGBA, error) {
	if s == "" {
		s = DefaultColor
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
