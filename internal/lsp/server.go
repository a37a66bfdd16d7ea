// Package lsp is a language server for MiniPar over stdio. It publishes the
// front end's diagnostics and answers hover, definition and completion
// requests from the declarations in the last program that parsed.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/diag"
	"github.com/AnriaW/minipar/internal/driver"
)

const (
	errMethodNotFound = -32601
	errInvalidParams  = -32602
	errInvalidRequest = -32600
)

type Server struct {
	driver *driver.Driver
	in     *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex
	log    *slog.Logger

	mu       sync.RWMutex
	docs     map[string]*Document
	shutdown bool
}

// Document is an open file and the result of its last check.
type Document struct {
	URI     string
	Content string
	Version int
	Unit    *driver.Unit

	// Program is the most recent tree that parsed. It survives edits that
	// break the syntax so navigation keeps working while typing.
	Program *ast.Program
}

func NewServer(d *driver.Driver, in io.Reader, out io.Writer) *Server {
	return &Server{
		driver: d,
		in:     bufio.NewReader(in),
		out:    out,
		log:    slog.Default().With("component", "lsp"),
		docs:   make(map[string]*Document),
	}
}

// Run serves requests until the client sends exit, the input ends or ctx
// is done.
func (s *Server) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		msg, err := s.readMessage()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if msg.Method == "exit" {
			return nil
		}

		if resp := s.handleMessage(msg); resp != nil {
			if err := s.send(resp); err != nil {
				s.log.Error("send response", "method", msg.Method, "error", err)
			}
		}
	}
	return ctx.Err()
}

type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// readMessage reads one Content-Length framed message. A body that is not
// JSON is logged and skipped by returning a nil message.
func (s *Server) readMessage() (*jsonrpcMessage, error) {
	length := -1
	for {
		line, err := s.in.ReadString('\n')
		if err != nil {
			if stderrors.Is(err, io.EOF) && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("bad Content-Length %q: %w", value, err)
			}
			length = n
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(s.in, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var msg jsonrpcMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Warn("discarding malformed message", "error", err)
		return nil, nil
	}
	return &msg, nil
}

// nullResult is a successful response whose result is null; the omitempty
// tag on jsonrpcMessage.Result would drop the member entirely.
type nullResult struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
}

func (s *Server) send(msg *jsonrpcMessage) error {
	msg.JSONRPC = "2.0"

	var v interface{} = msg
	if msg.ID != nil && msg.Method == "" && msg.Result == nil && msg.Error == nil {
		v = nullResult{JSONRPC: msg.JSONRPC, ID: msg.ID}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()

	if _, err := fmt.Fprintf(s.out, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	_, err = s.out.Write(data)
	return err
}

func (s *Server) handleMessage(msg *jsonrpcMessage) *jsonrpcMessage {
	s.mu.RLock()
	down := s.shutdown
	s.mu.RUnlock()
	if down && msg.ID != nil && msg.Method != "shutdown" {
		return errorResponse(msg, errInvalidRequest, "server is shutting down")
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return &jsonrpcMessage{ID: msg.ID}
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
		return nil
	case "textDocument/didChange":
		s.handleDidChange(msg)
		return nil
	case "textDocument/didClose":
		s.handleDidClose(msg)
		return nil
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	}

	if msg.ID == nil {
		return nil
	}
	return errorResponse(msg, errMethodNotFound, "method not found: "+msg.Method)
}

func errorResponse(msg *jsonrpcMessage, code int, text string) *jsonrpcMessage {
	return &jsonrpcMessage{ID: msg.ID, Error: &jsonrpcError{Code: code, Message: text}}
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	TextDocumentSync   int                    `json:"textDocumentSync"`
	CompletionProvider map[string]interface{} `json:"completionProvider,omitempty"`
	HoverProvider      bool                   `json:"hoverProvider"`
	DefinitionProvider bool                   `json:"definitionProvider"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleInitialize(msg *jsonrpcMessage) *jsonrpcMessage {
	return &jsonrpcMessage{
		ID: msg.ID,
		Result: InitializeResult{
			Capabilities: ServerCapabilities{
				TextDocumentSync:   1, // full
				CompletionProvider: map[string]interface{}{"triggerCharacters": []string{}},
				HoverProvider:      true,
				DefinitionProvider: true,
			},
			ServerInfo: ServerInfo{Name: "minipar-lsp", Version: "0.1.0"},
		},
	}
}

type TextDocumentItem struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Text    string `json:"text"`
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

func (s *Server) handleDidOpen(msg *jsonrpcMessage) {
	var params struct {
		TextDocument TextDocumentItem `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.log.Warn("bad didOpen params", "error", err)
		return
	}

	doc := &Document{
		URI:     params.TextDocument.URI,
		Content: params.TextDocument.Text,
		Version: params.TextDocument.Version,
	}
	s.update(doc)

	s.mu.Lock()
	s.docs[doc.URI] = doc
	s.mu.Unlock()

	s.publishDiagnostics(doc)
}

func (s *Server) handleDidChange(msg *jsonrpcMessage) {
	var params struct {
		TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
		ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.log.Warn("bad didChange params", "error", err)
		return
	}
	if len(params.ContentChanges) == 0 {
		return
	}

	s.mu.Lock()
	doc, ok := s.docs[params.TextDocument.URI]
	if ok {
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version
		s.update(doc)
	}
	s.mu.Unlock()

	if ok {
		s.publishDiagnostics(doc)
	}
}

func (s *Server) handleDidClose(msg *jsonrpcMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.log.Warn("bad didClose params", "error", err)
		return
	}

	s.mu.Lock()
	delete(s.docs, params.TextDocument.URI)
	s.mu.Unlock()

	// Clear what the client is still showing for the file.
	s.notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         params.TextDocument.URI,
		"diagnostics": []Diagnostic{},
	})
}

func (s *Server) update(doc *Document) {
	doc.Unit = s.driver.Check(uriToPath(doc.URI), doc.Content)
	if doc.Unit.Program != nil {
		doc.Program = doc.Unit.Program
	}
}

func (s *Server) document(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Position is zero-based, as on the wire.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

func (s *Server) publishDiagnostics(doc *Document) {
	out := make([]Diagnostic, 0, len(doc.Unit.Diagnostics))
	for _, d := range doc.Unit.Diagnostics {
		msg := d.Message
		if d.Help != "" {
			msg += " (" + d.Help + ")"
		}
		out = append(out, Diagnostic{
			Range:    spanRange(d.Span),
			Severity: severity(d.Severity),
			Code:     string(d.Code),
			Source:   "minipar",
			Message:  msg,
		})
	}

	s.notify("textDocument/publishDiagnostics", map[string]interface{}{
		"uri":         doc.URI,
		"version":     doc.Version,
		"diagnostics": out,
	})
}

func (s *Server) notify(method string, params interface{}) {
	raw, err := json.Marshal(params)
	if err != nil {
		s.log.Error("marshal notification", "method", method, "error", err)
		return
	}
	if err := s.send(&jsonrpcMessage{Method: method, Params: raw}); err != nil {
		s.log.Error("send notification", "method", method, "error", err)
	}
}

// spanRange converts a one-based span to a zero-based range on the span's
// first line.
func spanRange(sp diag.Span) Range {
	line, col := max(sp.Line-1, 0), max(sp.Column-1, 0)
	width := max(sp.End-sp.Start, 1)
	return Range{
		Start: Position{Line: line, Character: col},
		End:   Position{Line: line, Character: col + width},
	}
}

func severity(sev diag.Severity) int {
	switch sev {
	case diag.SeverityWarning:
		return 2
	case diag.SeverityNote:
		return 3
	default:
		return 1
	}
}

func uriToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return u.Path
}
