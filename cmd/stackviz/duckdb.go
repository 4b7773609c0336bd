//go:build duckdb

package main

// The duckdb backend needs cgo; build with -tags duckdb to include it.
import _ "github.com/chazu/stackviz/pkg/backend/duckdb"
