package server

import (
	"strings"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Evaluate
// ---------------------------------------------------------------------------

func TestEvaluate_Arithmetic(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: "1,2,:add"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(resp.Msg.Stack) != 1 {
		t.Fatalf("stack = %v, want one item", resp.Msg.Stack)
	}
	if got := resp.Msg.Stack[0]; got.Kind != "Number" || got.Text != "3" {
		t.Errorf("stack[0] = %+v, want Number 3", got)
	}
}

func TestEvaluate_Expression(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: "name,cpu,:eq,:sum"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got := resp.Msg.Stack[0]; got.Kind != "Expression" || got.Text != "name,cpu,:eq,:sum" {
		t.Errorf("stack[0] = %+v", got)
	}
}

func TestEvaluate_Vars(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: "x,cpu,:set"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(resp.Msg.Stack) != 0 {
		t.Errorf("stack = %v, want empty", resp.Msg.Stack)
	}
	if resp.Msg.Vars["x"] != "cpu" {
		t.Errorf("vars = %v, want x=cpu", resp.Msg.Vars)
	}
}

func TestEvaluate_CustomWord(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: ":cpu"}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if got := resp.Msg.Stack[0].Text; got != "name,cpu,:eq,:sum" {
		t.Errorf(":cpu = %q", got)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	svc := newTestEvalService(t)

	for _, program := range []string{"", "  ", ":nope", "1,:add", "a,:neg", "(,a"} {
		_, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: program}))
		wantCode(t, err, connect.CodeInvalidArgument)
	}
}

func TestEvaluate_DebugTrace(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: "1,:dup", Debug: true}))
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	steps := resp.Msg.Steps
	if len(steps) != 2 {
		t.Fatalf("steps = %+v, want 2", steps)
	}
	if steps[1].Token != ":dup" || strings.Join(steps[1].Stack, ",") != "1,1" {
		t.Errorf("steps[1] = %+v", steps[1])
	}
	if len(resp.Msg.Stack) != 2 || resp.Msg.Error != nil {
		t.Errorf("final stack = %v, error = %v", resp.Msg.Stack, resp.Msg.Error)
	}
}

func TestEvaluate_DebugReportsFailure(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.Evaluate(bg(), connectReq(&EvaluateRequest{Program: "1,:dup,:nope", Debug: true}))
	if err != nil {
		t.Fatalf("debug evaluation should report failures in the response: %v", err)
	}
	if resp.Msg.Error == nil || resp.Msg.Error.Kind != "UnknownWord" {
		t.Fatalf("error = %+v, want UnknownWord", resp.Msg.Error)
	}
	if len(resp.Msg.Steps) != 3 {
		t.Errorf("steps = %+v, want 3 including the failing token", resp.Msg.Steps)
	}
	if len(resp.Msg.Stack) != 0 {
		t.Errorf("failed evaluation returned a stack: %v", resp.Msg.Stack)
	}
}

// ---------------------------------------------------------------------------
// ListWords and CheckExamples
// ---------------------------------------------------------------------------

func TestListWords(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.ListWords(bg(), connectReq(&ListWordsRequest{}))
	if err != nil {
		t.Fatalf("ListWords returned error: %v", err)
	}
	names := make(map[string]WordInfo)
	for _, w := range resp.Msg.Words {
		names[w.Name] = w
	}
	for _, want := range []string{"dup", "swap", "eq", "sum", "by", "cpu"} {
		if _, ok := names[want]; !ok {
			t.Errorf("ListWords missing %q", want)
		}
	}
	if w := names["dup"]; w.Kind != "primitive" || w.Summary == "" {
		t.Errorf("dup = %+v", w)
	}
	if w := names["cpu"]; w.Kind != "macro" || w.Body != "name,cpu,:eq,:sum" || w.Summary != "Total CPU." {
		t.Errorf("cpu = %+v", w)
	}
}

func TestListWords_Prefix(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.ListWords(bg(), connectReq(&ListWordsRequest{Prefix: "sw"}))
	if err != nil {
		t.Fatalf("ListWords returned error: %v", err)
	}
	for _, w := range resp.Msg.Words {
		if !strings.HasPrefix(w.Name, "sw") {
			t.Errorf("word %q does not match prefix", w.Name)
		}
	}
	if len(resp.Msg.Words) == 0 {
		t.Error("expected at least :swap")
	}
}

func TestCheckExamples_All(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.CheckExamples(bg(), connectReq(&CheckExamplesRequest{}))
	if err != nil {
		t.Fatalf("CheckExamples returned error: %v", err)
	}
	if resp.Msg.Failed != 0 {
		for _, r := range resp.Msg.Results {
			if r.Error != "" {
				t.Errorf("%s: %s: %s", r.Word, r.Example, r.Error)
			}
		}
	}
	if len(resp.Msg.Results) == 0 {
		t.Error("no examples were run")
	}
}

func TestCheckExamples_OneWord(t *testing.T) {
	svc := newTestEvalService(t)

	resp, err := svc.CheckExamples(bg(), connectReq(&CheckExamplesRequest{Word: "swap"}))
	if err != nil {
		t.Fatalf("CheckExamples returned error: %v", err)
	}
	if len(resp.Msg.Results) == 0 {
		t.Fatal("no results for :swap")
	}
	for _, r := range resp.Msg.Results {
		if r.Word != "swap" || r.Error != "" || len(r.Output) == 0 {
			t.Errorf("result = %+v", r)
		}
	}

	_, err = svc.CheckExamples(bg(), connectReq(&CheckExamplesRequest{Word: "nope"}))
	wantCode(t, err, connect.CodeInvalidArgument)
}

// ---------------------------------------------------------------------------
// Over the wire
// ---------------------------------------------------------------------------

func TestClient_Codecs(t *testing.T) {
	ts, jsonClient := newTestServer(t, nil)
	cborClient := NewClient(ts.Client(), ts.URL, WithCBOR())

	for name, c := range map[string]*Client{"json": jsonClient, "cbor": cborClient} {
		t.Run(name, func(t *testing.T) {
			resp, err := c.Evaluate(bg(), &EvaluateRequest{Program: "a,b,:swap"})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if len(resp.Stack) != 2 || resp.Stack[0].Text != "b" || resp.Stack[1].Text != "a" {
				t.Errorf("stack = %+v", resp.Stack)
			}

			_, err = c.Evaluate(bg(), &EvaluateRequest{Program: "1,:add"})
			wantCode(t, err, connect.CodeInvalidArgument)
			if !strings.Contains(err.Error(), "add") {
				t.Errorf("error %q should name the word", err)
			}

			words, err := c.ListWords(bg(), "cp")
			if err != nil {
				t.Fatalf("ListWords: %v", err)
			}
			if len(words) != 1 || words[0].Name != "cpu" {
				t.Errorf("words = %+v", words)
			}
		})
	}
}
