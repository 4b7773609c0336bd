package duckdb

import (
	"testing"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/backend/backendtest"
)

func TestDuckDBBackend(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		b, err := backend.Open("duckdb", "")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return b
	})
}
