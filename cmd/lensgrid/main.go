// Command lensgrid renders a calibration grid through the lens pre-warp and
// writes the side-by-side result as a PNG, for tuning k against a viewer.
package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"quarkvr/internal/stereo"
	"quarkvr/quarkgl"
)

type options struct {
	out        string
	width      int
	height     int
	k          float32
	brightness float32
	cell       int
}

func main() {
	var o options
	cmd := &cobra.Command{
		Use:          "lensgrid",
		Short:        "Render a pre-warped calibration grid to PNG",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.out == "" {
				return fmt.Errorf("--out is required")
			}
			return render(o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.out, "out", "o", "", "output PNG path")
	f.IntVar(&o.width, "width", 1280, "output width (both eyes)")
	f.IntVar(&o.height, "height", 640, "output height")
	f.Float32Var(&o.k, "k", 0.12, "radial distortion coefficient")
	f.Float32Var(&o.brightness, "brightness", 0, "brightness lift")
	f.IntVar(&o.cell, "cell", 32, "grid cell size in source pixels")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func render(o options) error {
	if o.width < 2 || o.height < 1 {
		return fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	half := o.width / 2
	src := gridTarget(half, o.height, o.cell)

	screen := quarkgl.NewRGBATarget(o.width, o.height)
	r := quarkgl.NewRenderer(screen, false)
	r.Clear()

	mat := &stereo.Material{
		Source:     src,
		Distortion: stereo.Distortion{Enabled: true, K: o.k, Brightness: o.brightness},
	}
	for i := 0; i < 2; i++ {
		r.SetViewport(quarkgl.Rect{X: i * half, W: half, H: o.height})
		r.DrawQuad(mat)
	}

	f, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, screen.Img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", o.out, err)
	}
	return f.Close()
}

// gridTarget draws white grid lines on dark grey, with a red centre cross.
func gridTarget(w, h, cell int) *quarkgl.RGBATarget {
	if cell < 2 {
		cell = 2
	}
	t := quarkgl.NewRGBATarget(w, h)
	t.Clear(quarkgl.RGB(0x20, 0x20, 0x20))
	line := quarkgl.RGB(0xF0, 0xF0, 0xF0)
	cross := quarkgl.RGB(0xFF, 0x30, 0x30)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x == w/2 || y == h/2:
				t.SetPixel(x, y, cross)
			case x%cell == 0 || y%cell == 0:
				t.SetPixel(x, y, line)
			}
		}
	}
	return t
}
