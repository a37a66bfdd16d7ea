package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriaW/minipar/internal/driver"
)

const docURI = "file:///work/prog.mp"

type session struct {
	in bytes.Buffer
	id int
}

func (s *session) write(id interface{}, method string, params interface{}) {
	msg := map[string]interface{}{"jsonrpc": "2.0", "method": method}
	if id != nil {
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	data, _ := json.Marshal(msg)
	fmt.Fprintf(&s.in, "Content-Length: %d\r\n\r\n%s", len(data), data)
}

func (s *session) request(method string, params interface{}) int {
	s.id++
	s.write(s.id, method, params)
	return s.id
}

func (s *session) notify(method string, params interface{}) {
	s.write(nil, method, params)
}

type reply struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

// run feeds the session to a fresh server and returns everything it wrote.
func (s *session) run(t *testing.T) []reply {
	t.Helper()

	d, err := driver.New(driver.Options{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, NewServer(d, &s.in, &out).Run(context.Background()))

	var replies []reply
	r := bufio.NewReader(&out)
	for {
		header, err := r.ReadString('\n')
		if err == io.EOF {
			return replies
		}
		require.NoError(t, err)
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "Content-Length:")))
		require.NoError(t, err)
		_, err = r.ReadString('\n')
		require.NoError(t, err)

		body := make([]byte, n)
		_, err = io.ReadFull(r, body)
		require.NoError(t, err)

		var rep reply
		require.NoError(t, json.Unmarshal(body, &rep))
		replies = append(replies, rep)
	}
}

func response(t *testing.T, replies []reply, id int) reply {
	t.Helper()
	for _, r := range replies {
		if r.ID != nil && *r.ID == id {
			return r
		}
	}
	t.Fatalf("no response for request %d", id)
	return reply{}
}

func diagnostics(t *testing.T, replies []reply) [][]Diagnostic {
	t.Helper()
	var out [][]Diagnostic
	for _, r := range replies {
		if r.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params struct {
			Diagnostics []Diagnostic `json:"diagnostics"`
		}
		require.NoError(t, json.Unmarshal(r.Params, &params))
		out = append(out, params.Diagnostics)
	}
	return out
}

func open(s *session, text string) {
	s.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": docURI, "version": 1, "text": text},
	})
}

func at(line, char int) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": docURI},
		"position":     map[string]interface{}{"line": line, "character": char},
	}
}

func TestInitializeAndShutdown(t *testing.T) {
	var s session
	initID := s.request("initialize", map[string]interface{}{})
	s.notify("initialized", map[string]interface{}{})
	downID := s.request("shutdown", nil)
	lateID := s.request("textDocument/hover", at(0, 0))
	s.notify("exit", nil)

	replies := s.run(t)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(response(t, replies, initID).Result, &result))
	assert.True(t, result.Capabilities.HoverProvider)
	assert.True(t, result.Capabilities.DefinitionProvider)
	assert.Equal(t, "minipar-lsp", result.ServerInfo.Name)

	down := response(t, replies, downID)
	assert.Nil(t, down.Error)
	assert.Equal(t, "null", string(down.Result))

	late := response(t, replies, lateID)
	require.NotNil(t, late.Error)
	assert.Equal(t, errInvalidRequest, late.Error.Code)
}

func TestDiagnosticsFollowEdits(t *testing.T) {
	var s session
	open(&s, "SEQ {\n  output(y);\n}")
	s.notify("textDocument/didChange", map[string]interface{}{
		"textDocument":   map[string]interface{}{"uri": docURI, "version": 2},
		"contentChanges": []map[string]interface{}{{"text": "SEQ {\n  int y = 1;\n  output(y);\n}"}},
	})
	s.notify("textDocument/didClose", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": docURI},
	})

	published := diagnostics(t, s.run(t))
	require.Len(t, published, 3)

	require.Len(t, published[0], 1)
	first := published[0][0]
	assert.Equal(t, "SEM_UNDECLARED_NAME", first.Code)
	assert.Equal(t, 1, first.Severity)
	assert.Equal(t, Position{Line: 1, Character: 9}, first.Range.Start)
	assert.Equal(t, Position{Line: 1, Character: 10}, first.Range.End)

	assert.Empty(t, published[1], "the edit declares y")
	assert.Empty(t, published[2], "closing clears the file")
}

func TestHoverAndDefinition(t *testing.T) {
	src := "SEQ {\n  float rate = 0.5;\n  output(sigmoid(rate));\n}"

	var s session
	open(&s, src)
	varHover := s.request("textDocument/hover", at(2, 18))
	fnHover := s.request("textDocument/hover", at(2, 10))
	def := s.request("textDocument/definition", at(2, 18))
	blank := s.request("textDocument/hover", at(0, 0))
	s.notify("exit", nil)

	replies := s.run(t)

	var h Hover
	require.NoError(t, json.Unmarshal(response(t, replies, varHover).Result, &h))
	assert.Contains(t, h.Contents.Value, "float rate")
	assert.Contains(t, h.Contents.Value, "variable")

	require.NoError(t, json.Unmarshal(response(t, replies, fnHover).Result, &h))
	assert.Contains(t, h.Contents.Value, "sigmoid(float x)")
	assert.Contains(t, h.Contents.Value, "builtin function")

	var loc Location
	require.NoError(t, json.Unmarshal(response(t, replies, def).Result, &loc))
	assert.Equal(t, docURI, loc.URI)
	assert.Equal(t, Range{Start: Position{Line: 1, Character: 8}, End: Position{Line: 1, Character: 12}}, loc.Range)

	assert.Equal(t, "null", string(response(t, replies, blank).Result))
}

func TestCompletion(t *testing.T) {
	src := "SEQ {\n  int total = 1;\n  def twice(int n) { return n * 2; }\n  output(t\n}"

	var s session
	open(&s, src)
	id := s.request("textDocument/completion", at(3, 10))
	s.notify("exit", nil)

	replies := s.run(t)

	var list CompletionList
	require.NoError(t, json.Unmarshal(response(t, replies, id).Result, &list))

	labels := make(map[string]int)
	for _, item := range list.Items {
		labels[item.Label] = item.Kind
		assert.True(t, strings.HasPrefix(item.Label, "t"), item.Label)
	}
	// The last good tree is gone (the edit never parsed), so only builtins
	// and keywords are offered.
	assert.Equal(t, completionKindKeyword, labels["true"])
	assert.NotContains(t, labels, "total")
}

func TestCompletionUsesDeclarations(t *testing.T) {
	src := "SEQ {\n  int total = 1;\n  def twice(int n) { return n * 2; }\n  output(t);\n}"

	var s session
	open(&s, src)
	id := s.request("textDocument/completion", at(3, 10))
	s.notify("exit", nil)

	var list CompletionList
	require.NoError(t, json.Unmarshal(response(t, s.run(t), id).Result, &list))

	labels := make(map[string]int)
	for _, item := range list.Items {
		labels[item.Label] = item.Kind
	}
	assert.Equal(t, completionKindVariable, labels["total"])
	assert.Equal(t, completionKindFunction, labels["twice"])
	assert.Equal(t, completionKindKeyword, labels["true"])
	assert.NotContains(t, labels, "sigmoid")
}

func TestUnknownMethod(t *testing.T) {
	var s session
	id := s.request("workspace/symbol", map[string]interface{}{})
	s.notify("$/cancelRequest", map[string]interface{}{"id": 1})

	replies := s.run(t)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Error)
	assert.Equal(t, errMethodNotFound, replies[0].Error.Code)
	assert.Equal(t, id, *replies[0].ID)
}

func TestPositionToOffset(t *testing.T) {
	content := "ab\ncdé\nf"
	assert.Equal(t, 0, positionToOffset(content, Position{0, 0}))
	assert.Equal(t, 4, positionToOffset(content, Position{1, 1}))
	assert.Equal(t, 6, positionToOffset(content, Position{1, 3}))
	assert.Equal(t, 6, positionToOffset(content, Position{1, 40}), "clamps to the end of the line")
	assert.Equal(t, 7, positionToOffset(content, Position{2, 0}))
	assert.Equal(t, "tot", wordBefore("x = tot", 7))
}
