package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/cellforge/pkg/vars"
)

// EvalTimeout is the default limit for one variable script.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("variable script timed out")
	// ErrSuperseded is returned to a caller whose script finished after a
	// newer evaluation on the same engine started.
	ErrSuperseded = errors.New("variable script superseded by newer evaluation")
)

// evalResult is what the sandbox goroutine hands back.
type evalResult struct {
	store  *vars.Store
	errors []EvalError
	err    error
}

// await blocks until the sandbox for generation gen reports or timeout
// passes. A script left running after a timeout keeps its goroutine; the
// buffered channel lets it finish and be dropped.
func (e *Engine) await(ch <-chan evalResult, gen uint64, timeout time.Duration) evalResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		latest := e.generation
		e.mu.Unlock()
		if gen != latest {
			return evalResult{err: ErrSuperseded}
		}
		return res
	case <-timer.C:
		return evalResult{err: fmt.Errorf("%w after %s", ErrTimeout, timeout)}
	}
}
