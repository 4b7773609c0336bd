package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/stackviz/compiler"
	"github.com/chazu/stackviz/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "stackviz-lsp"

// LspServer offers completion, hover and diagnostics for stack programs.
// Each open document is one program.
type LspServer struct {
	pool *EvalPool

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server evaluating with in.
func NewLSP(in *vm.Interpreter) *LspServer {
	s := &LspServer{
		pool:    NewEvalPool(in, 1),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "stackviz LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{string(compiler.WordMarker)},
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.pool.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix, ok := wordPrefix(text, params.Position)
	if !ok {
		return nil, nil
	}
	return s.complete(prefix), nil
}

// complete lists the words whose names start with prefix.
func (s *LspServer) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	for _, w := range s.pool.Interpreter().Vocabulary().Words() {
		if !strings.HasPrefix(w.Name(), prefix) {
			continue
		}
		kind := protocol.CompletionItemKindFunction
		if _, ok := w.(*vm.Macro); ok {
			kind = protocol.CompletionItemKindSnippet
		}
		summary := w.Summary()
		items = append(items, protocol.CompletionItem{
			Label:  w.Name(),
			Kind:   &kind,
			Detail: &summary,
		})
	}
	return items
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	tok, ok := tokenAt(text, params.Position)
	if !ok || tok.Type != compiler.TokenWord {
		return nil, nil
	}
	return s.hover(text, tok), nil
}

// hover describes the word tok names: its summary, macro body and
// examples.
func (s *LspServer) hover(text string, tok compiler.Token) *protocol.Hover {
	w, ok := s.pool.Interpreter().Vocabulary().Lookup(tok.Name())
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**:%s**\n\n%s\n", w.Name(), w.Summary())
	if m, ok := w.(*vm.Macro); ok {
		fmt.Fprintf(&b, "\nExpands to `%s`\n", m.Body())
	}
	if examples := w.Examples(); len(examples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range examples {
			fmt.Fprintf(&b, "- `%s,:%s`\n", ex, w.Name())
		}
	}

	r := tokenRange(text, tok.Pos)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: b.String()},
		Range:    &r,
	}
}

// --- Diagnostics ---

// diagnose evaluates text and reports the failure, if any, at the token
// it relates to.
func (s *LspServer) diagnose(text string) []protocol.Diagnostic {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := s.pool.Do(context.Background(), func(in *vm.Interpreter) (interface{}, error) {
		return in.Execute(text)
	})
	if err == nil {
		return nil
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	code := protocol.IntegerOrString{Value: vm.ErrorKind(err)}
	return []protocol.Diagnostic{{
		Range:    errorRange(text, err),
		Severity: &severity,
		Code:     &code,
		Source:   &source,
		Message:  err.Error(),
	}}
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnose(text)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// errorRange locates the token an evaluation error relates to. Errors
// raised inside a macro expansion point at the first reference to the
// failing word in the document, or at the document start when there is
// none.
func errorRange(text string, err error) protocol.Range {
	var se *compiler.SyntaxError
	if errors.As(err, &se) {
		return tokenRange(text, se.Pos)
	}

	var name string
	var (
		uw *vm.UnknownWordError
		su *vm.StackUnderflowError
		te *vm.TypeError
		el *vm.ExpansionLimitExceededError
		vl *vm.ValueLimitExceededError
		uv *vm.UndefinedVariableError
	)
	switch {
	case errors.As(err, &uw):
		name = uw.Name
	case errors.As(err, &su):
		name = su.Word
	case errors.As(err, &te):
		name = te.Word
	case errors.As(err, &el):
		name = el.Word
	case errors.As(err, &vl):
		name = vl.Word
	case errors.As(err, &uv):
		name = "get"
	}

	tokens, _ := compiler.Tokenize(text)
	for _, tok := range tokens {
		if tok.Type == compiler.TokenWord && tok.Name() == name {
			return tokenRange(text, tok.Pos)
		}
	}
	return protocol.Range{}
}

// --- Text position helpers ---

// offsetOf converts an LSP position to a byte offset in text, clamped to
// the line's end.
func offsetOf(text string, pos protocol.Position) int {
	offset := 0
	for line := protocol.UInteger(0); line < pos.Line; line++ {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return len(text)
		}
		offset += i + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	col := int(pos.Character)
	if col > end {
		col = end
	}
	return offset + col
}

// positionOf converts a byte offset in text to an LSP position.
func positionOf(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	before := text[:offset]
	line := strings.Count(before, "\n")
	col := offset - (strings.LastIndexByte(before, '\n') + 1)
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func tokenRange(text string, pos compiler.Position) protocol.Range {
	return protocol.Range{Start: positionOf(text, pos.Offset), End: positionOf(text, pos.End)}
}

// tokenAt returns the token spanning pos. A program that fails to
// tokenize past pos still yields the tokens before the failure.
func tokenAt(text string, pos protocol.Position) (compiler.Token, bool) {
	offset := offsetOf(text, pos)
	l := compiler.NewLexer(text)
	for {
		tok, ok, err := l.NextToken()
		if err != nil || !ok {
			return compiler.Token{}, false
		}
		if offset >= tok.Pos.Offset && offset <= tok.Pos.End {
			return tok, true
		}
		if tok.Pos.Offset > offset {
			return compiler.Token{}, false
		}
	}
}

// wordPrefix returns the partial word name typed before pos, when the
// cursor follows a word marker.
func wordPrefix(text string, pos protocol.Position) (string, bool) {
	offset := offsetOf(text, pos)
	start := strings.LastIndexAny(text[:offset], ",\n")
	segment := strings.TrimLeft(text[start+1:offset], " \t\r")
	if !strings.HasPrefix(segment, string(compiler.WordMarker)) {
		return "", false
	}
	return segment[1:], true
}

func boolPtr(b bool) *bool {
	return &b
}
