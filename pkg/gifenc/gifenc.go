// Package gifenc builds animated GIFs in process from decoded images. It is
// the fallback when ffmpeg is missing or fails.
package gifenc

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"os"
	"time"

	// Decoders for OpenImage.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNoFrames is returned when encoding an animation without frames.
var ErrNoFrames = errors.New("gifenc: no frames")

// Options configures an animation.
type Options struct {
	// Delay is the display time of each frame. GIF stores it in 10ms units.
	Delay time.Duration
	// LoopCount follows image/gif: 0 loops forever, -1 plays once.
	LoopCount int
	// MaxWidth scales wider frames down, keeping aspect ratio. 0 disables.
	MaxWidth int
}

// OpenImage decodes a JPEG, PNG, GIF or WebP file. Animated GIFs yield
// their first frame.
func OpenImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}

// Animation accumulates frames. The first frame fixes the canvas size;
// later frames are scaled to fit and centered.
type Animation struct {
	opts   Options
	width  int
	height int
	g      gif.GIF
}

// NewAnimation creates an empty animation.
func NewAnimation(opts Options) *Animation {
	return &Animation{
		opts: opts,
		g:    gif.GIF{LoopCount: opts.LoopCount},
	}
}

// Len returns the number of frames added.
func (a *Animation) Len() int {
	return len(a.g.Image)
}

// Add quantizes img to the Plan 9 palette with Floyd-Steinberg dithering
// and appends it.
func (a *Animation) Add(img image.Image) {
	if a.width == 0 {
		a.width, a.height = canvasSize(img.Bounds(), a.opts.MaxWidth)
		a.g.Config = image.Config{ColorModel: color.Palette(palette.Plan9), Width: a.width, Height: a.height}
	}

	canvas := image.Rect(0, 0, a.width, a.height)
	src := img
	if b := img.Bounds(); b.Dx() != a.width || b.Dy() != a.height {
		scaled := image.NewRGBA(canvas)
		draw.Draw(scaled, canvas, image.Black, image.Point{}, draw.Src)
		draw.CatmullRom.Scale(scaled, fitRect(b, canvas), img, b, draw.Over, nil)
		src = scaled
	}

	frame := image.NewPaletted(canvas, palette.Plan9)
	draw.FloydSteinberg.Draw(frame, canvas, src, src.Bounds().Min)

	a.g.Image = append(a.g.Image, frame)
	a.g.Delay = append(a.g.Delay, delayCentis(a.opts.Delay))
}

// Encode writes the animation.
func (a *Animation) Encode(w io.Writer) error {
	if a.Len() == 0 {
		return ErrNoFrames
	}
	return gif.EncodeAll(w, &a.g)
}

// WriteFile writes the animation to path. A failed write leaves no file.
func (a *Animation) WriteFile(path string) error {
	if a.Len() == 0 {
		return ErrNoFrames
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	if err := a.Encode(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode gif: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close gif: %w", err)
	}
	return nil
}

// WriteAnimated opens every image in order and writes them as one
// animation to outPath.
func WriteAnimated(outPath string, imagePaths []string, opts Options) error {
	if len(imagePaths) == 0 {
		return ErrNoFrames
	}
	anim := NewAnimation(opts)
	for _, p := range imagePaths {
		img, err := OpenImage(p)
		if err != nil {
			return err
		}
		anim.Add(img)
	}
	return anim.WriteFile(outPath)
}

func canvasSize(b image.Rectangle, maxWidth int) (int, int) {
	w, h := b.Dx(), b.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// fitRect returns the largest rectangle with src's aspect ratio centered
// inside dst.
func fitRect(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func delayCentis(d time.Duration) int {
	cs := int(d / (10 * time.Millisecond))
	if cs < 1 {
		cs = 1
	}
	return cs
}
