package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"connectrpc.com/connect"

	"github.com/chazu/stackviz/vm"
)

// EvalService evaluates programs and describes the vocabulary.
type EvalService struct {
	pool *EvalPool
}

// NewEvalService creates an EvalService.
func NewEvalService(pool *EvalPool) *EvalService {
	return &EvalService{pool: pool}
}

// Evaluate runs a program and returns its final stack. With Debug set the
// response also carries the stack after every token, and evaluation errors
// are reported in the response next to the partial trace instead of as a
// connect error.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	program := req.Msg.Program
	if strings.TrimSpace(program) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}

	if req.Msg.Debug {
		return s.debug(ctx, program)
	}

	out, err := s.pool.Do(ctx, func(in *vm.Interpreter) (interface{}, error) {
		return in.Execute(program)
	})
	if err != nil {
		return nil, evalError(err)
	}
	result := out.(*vm.Result)

	resp := &EvaluateResponse{Stack: stackItems(result.Stack())}
	if vars := result.Vars(); len(vars) > 0 {
		resp.Vars = make(map[string]string, len(vars))
		for k, v := range vars {
			resp.Vars[k] = v.String()
		}
	}
	return connect.NewResponse(resp), nil
}

func (s *EvalService) debug(ctx context.Context, program string) (*connect.Response[EvaluateResponse], error) {
	var evalErr error
	out, err := s.pool.Do(ctx, func(in *vm.Interpreter) (interface{}, error) {
		steps, err := in.Debug(program)
		evalErr = err
		return steps, nil
	})
	if err != nil {
		return nil, evalError(err)
	}
	steps := out.([]vm.Step)

	resp := &EvaluateResponse{Steps: make([]TraceStep, len(steps))}
	for i, st := range steps {
		resp.Steps[i] = TraceStep{Token: st.Token, Stack: vm.Strings(st.Stack)}
	}
	if evalErr != nil {
		resp.Error = &EvalError{Kind: vm.ErrorKind(evalErr), Message: evalErr.Error()}
	} else if len(steps) > 0 {
		resp.Stack = stackItems(steps[len(steps)-1].Stack)
	}
	return connect.NewResponse(resp), nil
}

// ListWords lists the vocabulary, optionally filtered by name prefix.
func (s *EvalService) ListWords(
	ctx context.Context,
	req *connect.Request[ListWordsRequest],
) (*connect.Response[ListWordsResponse], error) {
	resp := &ListWordsResponse{}
	for _, w := range s.pool.Interpreter().Vocabulary().Words() {
		if strings.HasPrefix(w.Name(), req.Msg.Prefix) {
			resp.Words = append(resp.Words, wordInfo(w))
		}
	}
	return connect.NewResponse(resp), nil
}

// CheckExamples runs word examples, for one word or the whole vocabulary.
func (s *EvalService) CheckExamples(
	ctx context.Context,
	req *connect.Request[CheckExamplesRequest],
) (*connect.Response[CheckExamplesResponse], error) {
	name := req.Msg.Word
	out, err := s.pool.Do(ctx, func(in *vm.Interpreter) (interface{}, error) {
		if name == "" {
			return vm.CheckExamples(in), nil
		}
		w, ok := in.Vocabulary().Lookup(name)
		if !ok {
			return nil, &vm.UnknownWordError{Name: name}
		}
		return vm.CheckWordExamples(in, w), nil
	})
	if err != nil {
		return nil, evalError(err)
	}

	resp := &CheckExamplesResponse{Results: []ExampleOutcome{}}
	for _, r := range out.([]vm.ExampleResult) {
		o := ExampleOutcome{Word: r.Word, Example: r.Example, Output: r.Output}
		if !r.Passed() {
			o.Error = r.Err.Error()
			resp.Failed++
		}
		resp.Results = append(resp.Results, o)
	}
	sort.SliceStable(resp.Results, func(i, j int) bool { return resp.Results[i].Word < resp.Results[j].Word })
	return connect.NewResponse(resp), nil
}

func stackItems(stack []vm.Value) []StackItem {
	items := make([]StackItem, len(stack))
	for i, v := range stack {
		items[i] = StackItem{Kind: v.Kind().String(), Text: v.String()}
	}
	return items
}

func wordInfo(w vm.Word) WordInfo {
	info := WordInfo{Name: w.Name(), Kind: "primitive", Summary: w.Summary(), Examples: w.Examples()}
	if m, ok := w.(*vm.Macro); ok {
		info.Kind = "macro"
		info.Body = m.Body()
	}
	return info
}

// evalError maps an evaluation failure onto a connect error code.
func evalError(err error) *connect.Error {
	switch {
	case vm.IsEvalError(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
