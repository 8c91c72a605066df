// Package icon renders the map marker and cluster badge images as WebP.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"sync"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ContentType of every rendered icon.
const ContentType = "image/webp"

// Icons are drawn at supersample times their size and scaled down for smooth edges.
const supersample = 4

// maxLabel is the largest count printed on a cluster badge.
const maxLabel = 999

// ErrInvalidCount is returned for cluster counts below one.
var ErrInvalidCount = errors.New("cluster count must be positive")

var (
	pinColor   = color.RGBA{R: 0xE3, G: 0x06, B: 0x13, A: 0xFF}
	smallColor = color.RGBA{R: 0x00, G: 0x6C, B: 0xB7, A: 0xFF}
	midColor   = color.RGBA{R: 0xF2, G: 0x8C, B: 0x00, A: 0xFF}
	largeColor = color.RGBA{R: 0xE3, G: 0x06, B: 0x13, A: 0xFF}
)

// Renderer draws icons and caches the encoded bytes.
type Renderer struct {
	size int

	mu    sync.Mutex
	cache map[string][]byte
}

// NewRenderer creates a renderer for square icons of the given pixel size.
func NewRenderer(size int) *Renderer {
	if size < 16 {
		size = 16
	}
	return &Renderer{size: size, cache: make(map[string][]byte)}
}

// Outlet returns the single outlet pin.
func (r *Renderer) Outlet() ([]byte, error) {
	return r.cached("outlet", r.drawPin)
}

// Cluster returns a badge showing count. Counts above 999 share the "999+" badge.
func (r *Renderer) Cluster(count int) ([]byte, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	label := Label(count)
	return r.cached("cluster/"+label, func() image.Image {
		return r.drawBadge(label, badgeColor(count))
	})
}

// Label is the text printed on a cluster badge.
func Label(count int) string {
	if count > maxLabel {
		return strconv.Itoa(maxLabel) + "+"
	}
	return strconv.Itoa(count)
}

func badgeColor(count int) color.RGBA {
	switch {
	case count < 10:
		return smallColor
	case count < 100:
		return midColor
	default:
		return largeColor
	}
}

func (r *Renderer) cached(key string, render func() image.Image) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.cache[key]; ok {
		return b, nil
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, render(), &webp.Options{Lossless: true}); err != nil {
		return nil, fmt.Errorf("encode %s icon: %w", key, err)
	}
	r.cache[key] = buf.Bytes()
	return r.cache[key], nil
}

func (r *Renderer) drawPin() image.Image {
	s := float64(r.size * supersample)
	big := image.NewRGBA(image.Rect(0, 0, int(s), int(s)))

	cx, cy, radius := s/2, s*0.38, s*0.30
	tipY := s * 0.96

	fillCircle(big, cx, cy, radius, pinColor)
	for y := int(cy); y < int(tipY); y++ {
		half := radius * (tipY - float64(y)) / (tipY - cy)
		for x := int(cx - half); x <= int(cx+half); x++ {
			big.SetRGBA(x, y, pinColor)
		}
	}
	fillCircle(big, cx, cy, radius*0.42, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})

	return r.downscale(big)
}

func (r *Renderer) drawBadge(label string, c color.RGBA) image.Image {
	s := float64(r.size * supersample)
	big := image.NewRGBA(image.Rect(0, 0, int(s), int(s)))

	halo := c
	halo.A = 0x66
	fillCircle(big, s/2, s/2, s/2, premultiply(halo))
	fillCircle(big, s/2, s/2, s*0.38, c)

	dst := r.downscale(big)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	m := face.Metrics()
	width := d.MeasureString(label).Ceil()
	baseline := r.size/2 + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P((r.size-width)/2, baseline)
	d.DrawString(label)

	return dst
}

func (r *Renderer) downscale(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func fillCircle(img *image.RGBA, cx, cy, radius float64, c color.RGBA) {
	b := img.Bounds()
	r2 := radius * radius
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// premultiply converts a straight-alpha colour to the premultiplied form image.RGBA stores.
func premultiply(c color.RGBA) color.RGBA {
	a := uint16(c.A)
	return color.RGBA{
		R: uint8(uint16(c.R) * a / 0xFF),
		G: uint8(uint16(c.G) * a / 0xFF),
		B: uint8(uint16(c.B) * a / 0xFF),
		A: c.A,
	}
}
