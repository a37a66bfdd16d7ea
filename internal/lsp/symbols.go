package lsp

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/AnriaW/minipar/internal/ast"
	"github.com/AnriaW/minipar/internal/lexer"
	"github.com/AnriaW/minipar/internal/scope"
	"github.com/AnriaW/minipar/internal/semantic"
)

const (
	completionKindFunction = 3
	completionKindVariable = 6
	completionKindKeyword  = 14
)

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// declaration is a name introduced by the program.
type declaration struct {
	Name   string
	Kind   string // variable, channel, function, parameter, loop variable
	Detail string
	Span   lexer.Span
}

func declarations(prog *ast.Program) []declaration {
	if prog == nil {
		return nil
	}

	var out []declaration
	ast.Walk(prog, func(n ast.Node) bool {
		switch d := n.(type) {
		case *ast.VarDecl:
			out = append(out, declaration{d.Name.Name, "variable", typeName(d.Type) + " " + d.Name.Name, d.Name.Span()})
		case *ast.ChannelDecl:
			out = append(out, declaration{d.Name.Name, "channel", channelDetail(d), d.Name.Span()})
		case *ast.FuncDef:
			out = append(out, declaration{d.Name.Name, "function", funcDetail(d), d.Name.Span()})
		case *ast.Param:
			out = append(out, declaration{d.Name.Name, "parameter", typeName(d.Type) + " " + d.Name.Name, d.Name.Span()})
		case *ast.ForStmt:
			out = append(out, declaration{d.Var.Name, "loop variable", "for " + d.Var.Name + " in ...", d.Var.Span()})
		}
		return true
	})
	return out
}

// resolve picks the declaration of name closest before offset, falling back
// to the first one (functions may be called before their definition).
func resolve(decls []declaration, name string, offset int) (declaration, bool) {
	var best declaration
	found := false
	for _, d := range decls {
		if d.Name != name {
			continue
		}
		if !found || (d.Span.Start <= offset && d.Span.Start > best.Span.Start) {
			best, found = d, true
		}
	}
	return best, found
}

func typeName(t ast.TypeExpr) string {
	if t == nil {
		return "any"
	}
	return t.String()
}

func channelDetail(d *ast.ChannelDecl) string {
	if d.Role == ast.RoleLocal {
		names := make([]string, len(d.Endpoints))
		for i, ep := range d.Endpoints {
			names[i] = ep.Name
		}
		return "c_channel " + d.Name.Name + " {" + strings.Join(names, ", ") + "}"
	}
	return "c_channel " + d.Name.Name + " " + d.Role.String() + " " + d.Host + ":" + strconv.Itoa(d.Port)
}

func funcDetail(d *ast.FuncDef) string {
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = typeName(p.Type) + " " + p.Name.Name
	}
	return "def " + d.Name.Name + "(" + strings.Join(params, ", ") + ")"
}

func builtinDetail(fn scope.Function) string {
	if fn.Variadic {
		return fn.Name + "(...)"
	}
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type.String() + " " + p.Name
	}
	return fn.Name + "(" + strings.Join(params, ", ") + ")"
}

func builtin(name string) (scope.Function, bool) {
	for _, fn := range semantic.Builtins {
		if fn.Name == name {
			return fn, true
		}
	}
	return scope.Function{}, false
}

func (s *Server) handleHover(msg *jsonrpcMessage) *jsonrpcMessage {
	doc, offset, resp := s.positionRequest(msg)
	if doc == nil {
		return resp
	}

	ident := identAt(doc.Program, offset)
	if ident == nil {
		return &jsonrpcMessage{ID: msg.ID}
	}

	var text string
	if d, ok := resolve(declarations(doc.Program), ident.Name, offset); ok {
		text = "```minipar\n" + d.Detail + "\n```\n" + d.Kind
	} else if fn, ok := builtin(ident.Name); ok {
		text = "```minipar\n" + builtinDetail(fn) + "\n```\nbuiltin function"
	} else {
		return &jsonrpcMessage{ID: msg.ID}
	}

	r := identRange(ident)
	return &jsonrpcMessage{
		ID:     msg.ID,
		Result: Hover{Contents: MarkupContent{Kind: "markdown", Value: text}, Range: &r},
	}
}

func (s *Server) handleDefinition(msg *jsonrpcMessage) *jsonrpcMessage {
	doc, offset, resp := s.positionRequest(msg)
	if doc == nil {
		return resp
	}

	ident := identAt(doc.Program, offset)
	if ident == nil {
		return &jsonrpcMessage{ID: msg.ID}
	}
	d, ok := resolve(declarations(doc.Program), ident.Name, offset)
	if !ok {
		return &jsonrpcMessage{ID: msg.ID}
	}

	return &jsonrpcMessage{
		ID: msg.ID,
		Result: Location{
			URI: doc.URI,
			Range: Range{
				Start: Position{Line: d.Span.Line - 1, Character: d.Span.Column - 1},
				End:   Position{Line: d.Span.Line - 1, Character: d.Span.Column - 1 + len([]rune(d.Name))},
			},
		},
	}
}

func (s *Server) handleCompletion(msg *jsonrpcMessage) *jsonrpcMessage {
	doc, offset, resp := s.positionRequest(msg)
	if doc == nil {
		return resp
	}

	prefix := wordBefore(doc.Content, offset)
	seen := make(map[string]bool)
	var items []CompletionItem
	add := func(item CompletionItem) {
		if seen[item.Label] || !strings.HasPrefix(item.Label, prefix) {
			return
		}
		seen[item.Label] = true
		items = append(items, item)
	}

	for _, d := range declarations(doc.Program) {
		kind := completionKindVariable
		if d.Kind == "function" {
			kind = completionKindFunction
		}
		add(CompletionItem{Label: d.Name, Kind: kind, Detail: d.Detail})
	}
	for _, fn := range semantic.Builtins {
		add(CompletionItem{Label: fn.Name, Kind: completionKindFunction, Detail: builtinDetail(fn)})
	}
	for _, kw := range lexer.Keywords() {
		add(CompletionItem{Label: kw, Kind: completionKindKeyword})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return &jsonrpcMessage{ID: msg.ID, Result: CompletionList{Items: items}}
}

// positionRequest decodes a position request. When it returns a nil
// document, the returned message is the response to send.
func (s *Server) positionRequest(msg *jsonrpcMessage) (*Document, int, *jsonrpcMessage) {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, 0, errorResponse(msg, errInvalidParams, "invalid params: "+err.Error())
	}

	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, 0, &jsonrpcMessage{ID: msg.ID}
	}
	return doc, positionToOffset(doc.Content, params.Position), nil
}

func identAt(prog *ast.Program, offset int) *ast.Ident {
	if prog == nil {
		return nil
	}

	var found *ast.Ident
	ast.Walk(prog, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		if id, ok := n.(*ast.Ident); ok {
			sp := id.Span()
			if offset >= sp.Start && offset <= sp.End {
				found = id
			}
		}
		return true
	})
	return found
}

func identRange(id *ast.Ident) Range {
	sp := id.Span()
	return Range{
		Start: Position{Line: sp.Line - 1, Character: sp.Column - 1},
		End:   Position{Line: sp.Line - 1, Character: sp.Column - 1 + (sp.End - sp.Start)},
	}
}

// positionToOffset maps a zero-based line and character to a rune index.
func positionToOffset(content string, pos Position) int {
	line, col, offset := 0, 0, 0
	for _, r := range content {
		if line == pos.Line && col == pos.Character {
			return offset
		}
		if r == '\n' {
			if line == pos.Line {
				return offset
			}
			line++
			col = 0
		} else {
			col++
		}
		offset++
	}
	return offset
}

// wordBefore returns the identifier characters that end at offset.
func wordBefore(content string, offset int) string {
	runes := []rune(content)
	if offset > len(runes) {
		offset = len(runes)
	}
	start := offset
	for start > 0 && (unicode.IsLetter(runes[start-1]) || unicode.IsDigit(runes[start-1]) || runes[start-1] == '_') {
		start--
	}
	return string(runes[start:offset])
}
