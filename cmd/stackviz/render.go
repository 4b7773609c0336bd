package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chazu/stackviz/pkg/graph"
	"github.com/chazu/stackviz/pkg/pngimage"
)

func renderCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("render")
	out := fs.String("o", "graph.png", "output file")
	start := fs.String("s", "", "start time: RFC 3339, unix seconds, -DURATION or e-DURATION")
	end := fs.String("e", "", "end time (default now)")
	step := fs.String("step", "", "bucket width (default from config)")
	width := fs.String("width", "", "image width (default from config)")
	height := fs.String("height", "", "image height (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	program, err := programArg(fs)
	if err != nil {
		return err
	}
	m, err := g.load()
	if err != nil {
		return err
	}
	in, err := m.NewInterpreter()
	if err != nil {
		return err
	}
	b, err := openBackend(m)
	if err != nil {
		return err
	}
	defer b.Close()

	params := graph.Params{Start: *start, End: *end, Step: *step, Width: *width, Height: *height}
	req, err := graph.ParseRequest(program, params, graphDefaults(m), time.Now())
	if err != nil {
		return err
	}

	r := graph.Renderer{Interpreter: in, Backend: b}
	img, renderErr := r.RenderOrError(context.Background(), req)
	if err := writeImage(*out, img); err != nil {
		return err
	}
	if renderErr != nil {
		return fmt.Errorf("render: %w (error image written to %s)", renderErr, *out)
	}
	fmt.Fprintf(stdout, "%s: %dx%d, %s series\n", *out, img.Width(), img.Height(), img.Metadata["series-count"])
	return nil
}

func diffCommand(args []string, stdout io.Writer) error {
	fs, _ := newFlagSet("diff")
	out := fs.String("o", "", "write the difference image to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("diff: want two PNG files, got %d", fs.NArg())
	}
	a, err := readImage(fs.Arg(0))
	if err != nil {
		return err
	}
	b, err := readImage(fs.Arg(1))
	if err != nil {
		return err
	}

	d := pngimage.Diff(a, b)
	fmt.Fprintf(stdout, "%s: %s\n", pngimage.KeyIdentical, d.Metadata[pngimage.KeyIdentical])
	fmt.Fprintf(stdout, "%s: %s\n", pngimage.KeyDiffPixelCount, d.Metadata[pngimage.KeyDiffPixelCount])
	if *out != "" {
		if err := writeImage(*out, d); err != nil {
			return err
		}
	}
	if d.Metadata[pngimage.KeyIdentical] != "true" {
		return errSilent
	}
	return nil
}

func readImage(path string) (*pngimage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := pngimage.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return img, nil
}

func writeImage(path string, img *pngimage.Image) error {
	data, err := img.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
