package model

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Builder creates one component inside a session. parent and sideIndex
// name the port it is placed on; an empty parent means the global origin.
type Builder interface {
	Name() string
	CreateAll(s *Session, parent string, sideIndex int) error
}

// Step is one builder call of a build.
type Step struct {
	Builder Builder
	Parent  string
	Side    int
}

// Place returns a step building b on parent's port sideIndex.
func Place(b Builder, parent string, sideIndex int) Step {
	return Step{Builder: b, Parent: parent, Side: sideIndex}
}

// Root returns a step building b at the global origin.
func Root(b Builder) Step {
	return Step{Builder: b}
}

// BuildError reports the component whose builder failed. The session has
// already been reset when it is returned.
type BuildError struct {
	Component string
	Step      int
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("model: build step %d (%s): %v", e.Step, e.Component, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ErrInvalid is wrapped by BuildError when the finished session fails
// validation.
var ErrInvalid = errors.New("model: session failed validation")

// Build runs the steps in order. On the first failure it logs the
// component and error, resets the session and returns a *BuildError, so no
// partial model is ever left behind. After the last step the session is
// validated; validation errors fail the build the same way.
func Build(s *Session, steps ...Step) error {
	start := time.Now()
	for i, st := range steps {
		name := st.Builder.Name()
		s.Log.Debug("building component",
			zap.Int("step", i),
			zap.String("component", name),
			zap.String("parent", st.Parent),
			zap.Int("side", st.Side),
		)
		if err := st.Builder.CreateAll(s, st.Parent, st.Side); err != nil {
			return abort(s, &BuildError{Component: name, Step: i, Err: err})
		}
	}

	res := Validate(s)
	for _, w := range res.Warnings {
		s.Log.Warn("validation warning", zap.String("finding", w.Error()))
	}
	if len(res.Errors) > 0 {
		err := fmt.Errorf("%w: %w", ErrInvalid, errors.Join(findingErrors(res.Errors)...))
		return abort(s, &BuildError{Component: res.Errors[0].Owner, Step: len(steps), Err: err})
	}

	s.Log.Info("build complete",
		zap.Int("components", s.Objects.Len()),
		zap.Int("cells", len(s.cells)),
		zap.Int("surfaces", len(s.Surfaces.Surfaces())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func abort(s *Session, be *BuildError) error {
	s.Log.Error("build failed",
		zap.String("component", be.Component),
		zap.Int("step", be.Step),
		zap.Error(be.Err),
	)
	s.Reset()
	return be
}

func findingErrors(fs []Finding) []error {
	out := make([]error, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}
