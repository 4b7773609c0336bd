package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/series"
)

// seriesFile is the JSON ingest format: an array of tagged series.
//
//	[{"tags": {"name": "cpu", "node": "a"},
//	  "points": [{"t": "2024-03-01T12:00:00Z", "v": 1.5}]}]
type seriesFile []struct {
	Tags   map[string]string `json:"tags"`
	Points []series.Point    `json:"points"`
}

func ingestCommand(args []string, stdout io.Writer) error {
	fs, g := newFlagSet("ingest")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest: at least one JSON file required")
	}
	m, err := g.load()
	if err != nil {
		return err
	}
	b, err := openBackend(m)
	if err != nil {
		return err
	}
	defer b.Close()

	w, ok := b.(backend.Writer)
	if !ok {
		return fmt.Errorf("ingest: backend %s does not accept writes", m.Backend.Name)
	}
	if m.Backend.Name == "memory" {
		log.Warning("ingesting into the memory backend; data is lost on exit")
	}

	ctx := context.Background()
	for _, path := range fs.Args() {
		n, points, err := ingestFile(ctx, w, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d series, %d points\n", path, n, points)
	}
	return nil
}

func ingestFile(ctx context.Context, w backend.Writer, path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var file seriesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	points := 0
	for i, s := range file {
		if len(s.Tags) == 0 {
			return 0, 0, fmt.Errorf("%s: series %d has no tags", path, i)
		}
		if err := w.Write(ctx, s.Tags, s.Points); err != nil {
			return 0, 0, fmt.Errorf("%s: series %d: %w", path, i, err)
		}
		points += len(s.Points)
	}
	return len(file), points, nil
}
