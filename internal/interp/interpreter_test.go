package interp_test

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnriaW/minipar/internal/channel"
	"github.com/AnriaW/minipar/internal/errors"
	"github.com/AnriaW/minipar/internal/interp"
	"github.com/AnriaW/minipar/internal/parser"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, src, stdin string) result {
	t.Helper()

	prog, _, err := parser.Parse("test.mp", src)
	require.NoError(t, err)

	chOpts := channel.DefaultOptions()
	chOpts.DialInterval = 10 * time.Millisecond

	var stdout, stderr bytes.Buffer
	in := interp.New(interp.Options{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Stdin:   strings.NewReader(stdin),
		Channel: chOpts,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = in.Run(ctx, prog)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestScenarioSequentialArithmetic(t *testing.T) {
	r := run(t, `SEQ { int x = 2; int y = 3; int z = x + y; output(z); }`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "5\n", r.stdout)
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"7 / 2", "3"},
		{"-7 / 2", "-3"},
		{"7.0 / 2", "3.5"},
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"2 * 1.5", "3.0"},
		{`"ab" + "cd"`, "abcd"},
		{"1 < 2 and 2 < 3", "true"},
		{"1 > 2 or not true", "false"},
		{"1 == 1.0", "true"},
		{`"a" != "b"`, "true"},
		{`"abc" < "abd"`, "true"},
		{"[1, 2.5, \"x\", true]", "[1, 2.5, 'x', true]"},
		{"[]", "[]"},
		{"-(3)", "-3"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := run(t, "SEQ { output("+tt.expr+"); }", "")
			require.NoError(t, r.err)
			assert.Equal(t, tt.want+"\n", r.stdout)
		})
	}
}

func TestFloatDeclarationWidensInt(t *testing.T) {
	r := run(t, `SEQ { float f = 4; output(f); f = 2; output(f); }`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "4.0\n2.0\n", r.stdout)
}

func TestUninitializedVariableIsNil(t *testing.T) {
	r := run(t, `SEQ { int x; output(x); x = 3; output(x); }`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "nil\n3\n", r.stdout)
}

func TestControlFlow(t *testing.T) {
	r := run(t, `SEQ {
	int i = 0;
	while i < 3 {
		if i == 0 {
			output("zero");
		} else if i == 1 {
			output("one");
		} else {
			output("many");
		}
		i = i + 1;
	}
	for (v in [10, 20]) { output(v); }
	for (ch in "ab") { output(ch); }
}`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "zero\none\nmany\n10\n20\na\nb\n", r.stdout)
}

func TestDivisionByZeroHaltsBlock(t *testing.T) {
	r := run(t, `SEQ {
	output("a");
	output(1 / 0);
	output("b");
}`, "")

	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.CodeExecution))
	assert.Contains(t, r.err.Error(), "division by zero")
	assert.Contains(t, r.err.Error(), "line=3")
	assert.Equal(t, "a\n", r.stdout)
}

func TestParJoinsAllChildren(t *testing.T) {
	r := run(t, `SEQ {
	PAR {
		output("one");
		output("two");
		output("three");
	}
	output("done");
}`, "")
	require.NoError(t, r.err)

	lines := strings.Split(strings.TrimSpace(r.stdout), "\n")
	require.Len(t, lines, 4)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, lines[:3])
	assert.Equal(t, "done", lines[3])
}

func TestParChildFailureDoesNotStopSiblings(t *testing.T) {
	r := run(t, `SEQ {
	PAR {
		output(1 / 0);
		output("ok");
	}
	output("after");
}`, "")

	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "1 parallel statement(s) failed")
	assert.Contains(t, r.stdout, "ok\n")
	assert.True(t, strings.HasSuffix(r.stdout, "after\n"))
	assert.Contains(t, r.stderr, "division by zero")
}

func TestParChildrenShareFrame(t *testing.T) {
	r := run(t, `SEQ {
	int total = 0;
	PAR {
		total = total + 1;
		SEQ { int local = 5; output(local); }
	}
	output(total);
}`, "")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "5\n")
	assert.True(t, strings.HasSuffix(r.stdout, "1\n"))
}

func TestLocalChannelRendezvous(t *testing.T) {
	r := run(t, `SEQ {
	c_channel calc a b;
	PAR {
		calc.send: 1, 2.5, "x";
		SEQ {
			calc.receive: first, rest;
			output(rest, first);
		}
	}
}`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "2.5 x 1\n", r.stdout)
}

func TestServerAndClientInOneProgram(t *testing.T) {
	port := freePort(t)
	src := fmt.Sprintf(`PAR {
	SEQ {
		c_channel srv = server "127.0.0.1" %d;
		srv.receive: msg;
		output("got " + msg);
		srv.send: [1, 2];
	}
	SEQ {
		c_channel cli = client "127.0.0.1" %d;
		cli.send: "hi";
		cli.receive: reply;
		output("reply " + reply);
	}
}`, port, port)

	r := run(t, src, "")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "got hi\n")
	assert.Contains(t, r.stdout, "reply [1, 2]\n")
}

// Two PAR children each send over their own channel; both peers see their
// message whatever order the children start in.
func TestScenarioParallelSendsOverTwoChannels(t *testing.T) {
	type peer struct {
		ln  net.Listener
		got chan string
	}
	peers := make([]peer, 2)
	for i := range peers {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()

		p := peer{ln: ln, got: make(chan string, 1)}
		peers[i] = p
		go func() {
			conn, err := p.ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			buf := make([]byte, 64)
			n, _ := conn.Read(buf)
			p.got <- string(buf[:n])
		}()
	}

	src := fmt.Sprintf(`PAR {
	SEQ { c_channel left = client "127.0.0.1" %d; left.send: "from left"; }
	SEQ { c_channel right = client "127.0.0.1" %d; right.send: "from right"; }
}`, peers[0].ln.Addr().(*net.TCPAddr).Port, peers[1].ln.Addr().(*net.TCPAddr).Port)

	r := run(t, src, "")
	require.NoError(t, r.err)

	for i, want := range []string{"from left", "from right"} {
		select {
		case got := <-peers[i].got:
			assert.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("peer %d received nothing", i)
		}
	}
}

func TestUnknownChannelIsExecutionError(t *testing.T) {
	r := run(t, `SEQ { output("before"); ghost.send: 1; output("after"); }`, "")
	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.CodeExecution))
	assert.Contains(t, r.err.Error(), "channel 'ghost' is not open")
	assert.Equal(t, "before\n", r.stdout)
}

func TestInput(t *testing.T) {
	r := run(t, `SEQ {
	input name;
	output("hi " + name);
	string city = input("where?");
	output(city);
}`, "alice\nparis\n")
	require.NoError(t, r.err)
	assert.Equal(t, "hi alice\nwhere?paris\n", r.stdout)

	r = run(t, `SEQ { input name; }`, "")
	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.CodeIO))
}

func TestTextIntoTypedVariable(t *testing.T) {
	r := run(t, `SEQ { int n = 0; input n; }`, "41\n")
	require.Error(t, r.err)
	assert.True(t, errors.IsCode(r.err, errors.CodeExecution))
	assert.Contains(t, r.err.Error(), "cannot store text in 'n' of type int")

	r = run(t, `SEQ {
	c_channel c a b;
	float f = 0.0;
	PAR {
		c.send: 2.5;
		c.receive: f;
	}
	output("after");
}`, "")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "1 parallel statement(s) failed")
	assert.Contains(t, r.stderr, "cannot store text in 'f' of type float")
	assert.Equal(t, "after\n", r.stdout)

	r = run(t, `SEQ { string s = ""; input s; output(s); }`, "41\n")
	require.NoError(t, r.err)
	assert.Equal(t, "41\n", r.stdout)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		call string
		want string
	}{
		{"sigmoid(0)", "0.5"},
		{"sigmoid_derivative(0.5)", "0.25"},
		{"relu(-1.0)", "0.0"},
		{"relu(2)", "2.0"},
		{"activation(0.5)", "1.0"},
		{"activation(-0.5)", "0.0"},
		{"quicksort([3, 1, 2.5])", "[1, 2.5, 3]"},
		{`quicksort(["b", "a"])`, "['a', 'b']"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			r := run(t, "SEQ { output("+tt.call+"); }", "")
			require.NoError(t, r.err)
			assert.Equal(t, tt.want+"\n", r.stdout)
		})
	}

	r := run(t, `SEQ { print("a", 1, true); }`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "a 1 true\n", r.stdout)

	r = run(t, `SEQ { quicksort([1, "a"]); }`, "")
	require.Error(t, r.err)
}

func TestUserFunctionReturnsPlaceholder(t *testing.T) {
	r := run(t, `SEQ {
	int r = f(5);
	output(r);
	def f(a) { output("never"); return a; }
}`, "")
	require.NoError(t, r.err)
	assert.Equal(t, "0\n", r.stdout)
}

func TestCancelledContextStopsRun(t *testing.T) {
	prog, _, err := parser.Parse("test.mp", `SEQ { c_channel c a b; c.receive: x; }`)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	in := interp.New(interp.Options{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	err = in.Run(ctx, prog)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCancelledContextStopsEmptyLoop(t *testing.T) {
	prog, _, err := parser.Parse("test.mp", `SEQ { while true { } }`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		in := interp.New(interp.Options{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
		done <- in.Run(ctx, prog)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("loop ignored cancellation")
	}
}

func TestValueDisplay(t *testing.T) {
	assert.Equal(t, "3.0", interp.Float(3).String())
	assert.Equal(t, "0.1", interp.Float(0.1).String())
	assert.Equal(t, "1e+21", interp.Float(1e21).String())
	assert.Equal(t, "nil", interp.Nil.String())
	assert.Equal(t, "[[1], 'a']", interp.List([]interp.Value{
		interp.List([]interp.Value{interp.Int(1)}),
		interp.String("a"),
	}).String())

	assert.True(t, interp.Equal(interp.Int(2), interp.Float(2)))
	assert.False(t, interp.Equal(interp.String("2"), interp.Int(2)))
}
