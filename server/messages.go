package server

// Request and response messages for the connect services. They are plain
// structs encoded by the JSON or CBOR codec.

// Procedure names.
const (
	EvalServiceName  = "stackviz.v1.EvalService"
	GraphServiceName = "stackviz.v1.GraphService"

	EvaluateProcedure      = "/" + EvalServiceName + "/Evaluate"
	ListWordsProcedure     = "/" + EvalServiceName + "/ListWords"
	CheckExamplesProcedure = "/" + EvalServiceName + "/CheckExamples"
	RenderProcedure        = "/" + GraphServiceName + "/Render"
)

type EvaluateRequest struct {
	Program string `json:"program"`
	Debug   bool   `json:"debug,omitempty"`
}

// StackItem is one rendered stack value.
type StackItem struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// TraceStep is the stack after one token, rendered bottom first.
type TraceStep struct {
	Token string   `json:"token"`
	Stack []string `json:"stack"`
}

// EvalError describes a failed debug evaluation.
type EvalError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type EvaluateResponse struct {
	Stack []StackItem       `json:"stack"`
	Vars  map[string]string `json:"vars,omitempty"`
	Steps []TraceStep       `json:"steps,omitempty"`
	Error *EvalError        `json:"error,omitempty"`
}

type ListWordsRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

type WordInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Summary  string   `json:"summary"`
	Body     string   `json:"body,omitempty"`
	Examples []string `json:"examples,omitempty"`
}

type ListWordsResponse struct {
	Words []WordInfo `json:"words"`
}

type CheckExamplesRequest struct {
	Word string `json:"word,omitempty"`
}

type ExampleOutcome struct {
	Word    string   `json:"word"`
	Example string   `json:"example"`
	Output  []string `json:"output,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type CheckExamplesResponse struct {
	Results []ExampleOutcome `json:"results"`
	Failed  int              `json:"failed"`
}

// RenderRequest carries graph parameters in the same form as the HTTP
// graph endpoint.
type RenderRequest struct {
	Program string `json:"program"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Step    string `json:"step,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type RenderResponse struct {
	ID       string            `json:"id"`
	PNG      []byte            `json:"png"`
	Metadata map[string]string `json:"metadata"`
}
