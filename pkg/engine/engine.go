// Package engine evaluates zygomys variable scripts into a vars.Store.
// Each evaluation runs in a fresh sandbox with the defvar/defvars/getvar/
// hasvar builtins installed.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"

	"github.com/chazu/cellforge/pkg/vars"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds one evaluation. Zero means EvalTimeout.
	Timeout time.Duration
	Log     *zap.Logger

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance that logs to log, which may be
// nil.
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Log: log}
}

// Evaluate runs source and returns the variables it defined.
//
// Return semantics:
//   - On success: returns store + nil errors + nil error
//   - On parse/eval failure: returns nil store + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*vars.Store, []EvalError, error) {
	return e.EvaluateWith(nil, source)
}

// EvaluateWith is like Evaluate but seeds the script's store with a copy of
// base, so getvar sees variables loaded from other files. base itself is
// not modified.
func (e *Engine) EvaluateWith(base *vars.Store, source string) (*vars.Store, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	store := vars.NewStore()
	if base != nil {
		store.Merge(base)
	}
	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		evalErrs, err := evaluate(store, source)
		if len(evalErrs) > 0 || err != nil {
			ch <- evalResult{errors: evalErrs, err: err}
			return
		}
		ch <- evalResult{store: store}
	}()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	res := e.await(ch, gen, timeout)
	out, evalErrs, err := res.store, res.errors, res.err
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	switch {
	case err != nil:
		log.Error("variable script failed", zap.Error(err))
	case len(evalErrs) > 0:
		log.Warn("variable script has errors", zap.Int("errors", len(evalErrs)), zap.String("first", evalErrs[0].Error()))
	default:
		log.Debug("variable script evaluated", zap.Int("variables", out.Len()))
	}
	return out, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(store *vars.Store, source string) ([]EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, store)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return parseZygomysError(err), nil
	}
	return nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// Try to extract line numbers from the error message.
	// zygomys formats parse errors as "Error on line N: <details>\n"
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		detail := strings.TrimSpace(m[2])
		return []EvalError{{
			Line:    line,
			Col:     0,
			Message: detail,
		}}
	}

	// Fallback: no line info available.
	return []EvalError{{
		Line:    0,
		Col:     0,
		Message: strings.TrimSpace(msg),
	}}
}
