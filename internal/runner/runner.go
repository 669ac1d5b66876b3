// Package runner builds fresh execution namespaces and runs submitted code
// in them with the Starlark interpreter.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/lib/json"
	"go.starlark.net/lib/math"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/rcliao/ds-tutor/internal/lib/np"
	"github.com/rcliao/ds-tutor/internal/lib/pd"
)

// FaultKind classifies why submitted code could not run to completion.
type FaultKind int

const (
	SyntaxFault FaultKind = iota + 1
	NameFault
	RuntimeFault
)

func (k FaultKind) String() string {
	switch k {
	case SyntaxFault:
		return "syntax"
	case NameFault:
		return "name"
	case RuntimeFault:
		return "runtime"
	}
	return "unknown"
}

// Fault is a failed execution. Name is the error class shown to the learner
// (SyntaxError, NameError, KeyError, ...), Message the detail.
type Fault struct {
	Kind    FaultKind
	Name    string
	Message string
}

func (f *Fault) Error() string {
	return f.Name + ": " + f.Message
}

// Outcome is the result of one execution: the namespace after the run, or a
// fault. Stdout holds whatever the code printed either way.
type Outcome struct {
	Namespace starlark.StringDict
	Fault     *Fault
	Stdout    string
}

// OK reports whether the code ran without a fault.
func (o Outcome) OK() bool { return o.Fault == nil }

// Execution limits applied when Options leaves them zero. The depth limit
// matches Python's default recursion limit.
const (
	DefaultMaxSteps uint64 = 1_000_000
	DefaultMaxDepth        = 1000
)

// depthCheckEvery is how many steps pass between call-depth checks.
const depthCheckEvery = 1024

// Options configures a Runner.
type Options struct {
	// MaxSteps bounds the number of interpreter steps per execution.
	// Zero selects DefaultMaxSteps.
	MaxSteps uint64
	// MaxDepth bounds the Starlark call depth. Zero selects DefaultMaxDepth.
	MaxDepth int
}

// Runner executes code. It holds no per-execution state and is safe to
// share.
type Runner struct {
	opts Options
}

// New creates a runner.
func New(opts Options) *Runner {
	if opts.MaxSteps == 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Runner{opts: opts}
}

// dialect is the accepted language: the Starlark core plus the statement
// forms learners reach for in notebook-style code.
var dialect = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Namespace returns a fresh namespace holding the standard library roots
// under their conventional aliases. Library values are created per call so
// no mutable state crosses namespaces.
func (r *Runner) Namespace() starlark.StringDict {
	numpy := np.NewModule()
	pandas := pd.NewModule()
	return starlark.StringDict{
		"np":     numpy,
		"numpy":  numpy,
		"pd":     pandas,
		"pandas": pandas,
		"math":   math.Module,
		"json":   json.Module,
		"sum":    starlark.NewBuiltin("sum", builtinSum),
		"round":  starlark.NewBuiltin("round", builtinRound),
	}
}

// NewThread returns a thread that records print output and is cancelled
// when ctx is done. The returned func releases the watcher and must be
// called when the thread is no longer in use.
func (r *Runner) NewThread(ctx context.Context, name string, out *strings.Builder) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			if out != nil {
				out.WriteString(msg)
				out.WriteByte('\n')
			}
		},
	}
	r.limit(thread)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()
	return thread, func() { close(done) }
}

// limit arms the step budget in chunks so the call depth can be checked
// between them. Deep recursion would otherwise exhaust the Go stack, which
// is fatal and cannot be recovered.
func (r *Runner) limit(thread *starlark.Thread) {
	budget := r.opts.MaxSteps
	next := func(now uint64) uint64 { return min(now+depthCheckEvery, budget) }
	thread.SetMaxExecutionSteps(next(0))
	thread.OnMaxSteps = func(th *starlark.Thread) {
		switch {
		case th.CallStackDepth() > r.opts.MaxDepth:
			th.Cancel(errRecursion)
		case th.ExecutionSteps() >= budget:
			th.Cancel("too many steps")
		default:
			th.SetMaxExecutionSteps(next(th.ExecutionSteps()))
		}
	}
}

const errRecursion = "maximum recursion depth exceeded"

// Execute runs code with ns as its read scope and merges the resulting
// top-level bindings back into ns. On a fault ns is left untouched.
func (r *Runner) Execute(ctx context.Context, code string, ns starlark.StringDict) (out Outcome) {
	if ns == nil {
		ns = r.Namespace()
	}
	var stdout strings.Builder
	thread, release := r.NewThread(ctx, "exec", &stdout)
	defer release()
	defer func() {
		out.Stdout = stdout.String()
		if p := recover(); p != nil {
			out = Outcome{Namespace: ns, Stdout: stdout.String(), Fault: &Fault{
				Kind: RuntimeFault, Name: "RuntimeError", Message: fmt.Sprint(p),
			}}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Outcome{Namespace: ns, Fault: &Fault{Kind: RuntimeFault, Name: "CancelledError", Message: err.Error()}}
	}

	code, fault := rewriteImports(code, ns)
	if fault != nil {
		return Outcome{Namespace: ns, Fault: fault}
	}
	_, prog, err := starlark.SourceProgramOptions(dialect, "<submission>", code, ns.Has)
	if err != nil {
		return Outcome{Namespace: ns, Fault: classifyStatic(err)}
	}
	globals, err := prog.Init(thread, ns)
	if err != nil {
		return Outcome{Namespace: ns, Fault: classifyRuntime(err)}
	}
	for k, v := range globals {
		ns[k] = v
	}
	return Outcome{Namespace: ns}
}

func classifyStatic(err error) *Fault {
	var serr syntax.Error
	if errors.As(err, &serr) {
		return &Fault{Kind: SyntaxFault, Name: "SyntaxError", Message: fmt.Sprintf("%s (line %d)", serr.Msg, serr.Pos.Line)}
	}
	var rerrs resolve.ErrorList
	if errors.As(err, &rerrs) && len(rerrs) > 0 {
		first := rerrs[0]
		if rest, ok := strings.CutPrefix(first.Msg, "undefined:"); ok {
			name := strings.Fields(rest)[0]
			return &Fault{Kind: NameFault, Name: "NameError", Message: fmt.Sprintf("name '%s' is not defined", name)}
		}
		return &Fault{Kind: SyntaxFault, Name: "SyntaxError", Message: fmt.Sprintf("%s (line %d)", first.Msg, first.Pos.Line)}
	}
	return &Fault{Kind: SyntaxFault, Name: "SyntaxError", Message: err.Error()}
}

func classifyRuntime(err error) *Fault {
	msg := err.Error()
	var eerr *starlark.EvalError
	if errors.As(err, &eerr) {
		msg = eerr.Msg
	}
	if strings.Contains(msg, "referenced before assignment") {
		return &Fault{Kind: NameFault, Name: "NameError", Message: msg}
	}
	return &Fault{Kind: RuntimeFault, Name: runtimeName(msg), Message: msg}
}

// runtimeName picks the error class a learner would expect for an
// interpreter error message.
func runtimeName(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "division by zero"), strings.Contains(m, "modulo by zero"):
		return "ZeroDivisionError"
	case strings.Contains(m, "out of range"):
		return "IndexError"
	case strings.Contains(m, "key ") && strings.Contains(m, " not in "):
		return "KeyError"
	case strings.Contains(m, "has no ") && strings.Contains(m, "field or method"):
		return "AttributeError"
	case strings.Contains(m, errRecursion):
		return "RecursionError"
	case strings.Contains(m, "cancelled"), strings.Contains(m, "too many steps"):
		return "CancelledError"
	case strings.Contains(m, "unsupported"), strings.Contains(m, "unknown binary op"),
		strings.Contains(m, "not callable"), strings.Contains(m, "invalid call of non-function"),
		strings.Contains(m, "got ") && strings.Contains(m, "want "),
		strings.Contains(m, "unhashable"), strings.Contains(m, "missing argument"),
		strings.Contains(m, "unexpected keyword"), strings.Contains(m, "does not accept"),
		strings.Contains(m, "not implemented"):
		return "TypeError"
	case strings.Contains(m, "invalid literal"), strings.Contains(m, "not understood"),
		strings.Contains(m, "cannot reshape"), strings.Contains(m, "could not be broadcast"),
		strings.Contains(m, "inhomogeneous"), strings.Contains(m, "must be"):
		return "ValueError"
	}
	return "RuntimeError"
}
