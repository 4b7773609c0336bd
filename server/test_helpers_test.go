package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/chazu/stackviz/pkg/backend"
	"github.com/chazu/stackviz/pkg/backend/backendtest"
	"github.com/chazu/stackviz/pkg/graph"
	"github.com/chazu/stackviz/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
//
// Every test gets its own interpreter, memory backend loaded with the
// backendtest fixture, and server; none of them is expensive.
// ---------------------------------------------------------------------------

// fixtureWindow is the s/e query covering the fixture data.
const fixtureWindow = "s=2024-03-01T12:00:00Z&e=2024-03-01T12:05:00Z"

func newTestInterpreter(t *testing.T) *vm.Interpreter {
	t.Helper()
	custom, err := vm.NewCustomVocabulary([]vm.WordDef{
		{Name: "cpu", Body: "name,cpu,:eq,:sum", Summary: "Total CPU."},
	})
	if err != nil {
		t.Fatalf("NewCustomVocabulary: %v", err)
	}
	return vm.NewInterpreter(vm.Merge(vm.StandardVocabulary(), custom))
}

func newTestBackend(t *testing.T) backend.Backend {
	t.Helper()
	mem := backend.NewMemory()
	backendtest.Fixture(t, mem)
	return mem
}

var testDefaults = graph.Defaults{Width: 200, Height: 100, Step: time.Minute, Span: 5 * time.Minute}

// newTestServer starts a Server over httptest and returns it with a JSON
// client.
func newTestServer(t *testing.T, b backend.Backend) (*httptest.Server, *Client) {
	t.Helper()
	if b == nil {
		b = newTestBackend(t)
	}
	s := New(newTestInterpreter(t), b, WithWorkers(2), WithGraphDefaults(testDefaults))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return ts, NewClient(ts.Client(), ts.URL)
}

func newTestEvalService(t *testing.T) *EvalService {
	t.Helper()
	pool := NewEvalPool(newTestInterpreter(t), 2)
	t.Cleanup(pool.Stop)
	return NewEvalService(pool)
}

func bg() context.Context {
	return context.Background()
}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

func wantCode(t *testing.T, err error, code connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", code)
	}
	if got := connect.CodeOf(err); got != code {
		t.Fatalf("error code = %v, want %v (%v)", got, code, err)
	}
}
