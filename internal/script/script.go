// Package script runs the @js resolver hook in an embedded JS VM, backing
// ir.IOJS/ir.JSTemplate (spec.md §4.4 "IO(js)", §9 "@js worker").
//
// Grounded on github.com/dop251/goja, already part of the teacher's stack
// (go.mod); no prior teacher package runs user scripts, so the worker
// itself is new. Each linked script is compiled on first use and the
// compiled program is cached for the Worker's lifetime; every Call runs it
// in a fresh VM.
package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

// Worker compiles and invokes linked Script resources. Sources is keyed by
// the config.Link ID referenced by ir.JSTemplate.Script.
type Worker struct {
	mu       sync.Mutex
	sources  map[string]string
	programs map[string]*goja.Program
}

func NewWorker(sources map[string]string) *Worker {
	return &Worker{sources: sources, programs: make(map[string]*goja.Program)}
}

func (w *Worker) program(script string) (*goja.Program, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.programs[script]; ok {
		return p, nil
	}
	src, ok := w.sources[script]
	if !ok {
		return nil, fmt.Errorf("script: no source linked for %q", script)
	}
	prog, err := goja.Compile(script, src, false)
	if err != nil {
		return nil, fmt.Errorf("script: compiling %q: %w", script, err)
	}
	w.programs[script] = prog
	return prog, nil
}

// Call runs tmpl.Export against the current scope's value/args, interrupting
// the VM if it exceeds tmpl.TimeoutMS.
func (w *Worker) Call(ctx context.Context, tmpl *ir.JSTemplate, scope template.Scope) (value.Value, error) {
	prog, err := w.program(tmpl.Script)
	if err != nil {
		return value.Null, err
	}

	vm := goja.New()
	timeout := time.Duration(tmpl.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Second
	}
	timer := time.AfterFunc(timeout, func() { vm.Interrupt("script: execution timed out") })
	defer timer.Stop()

	if _, err := vm.RunProgram(prog); err != nil {
		return value.Null, fmt.Errorf("script: running %q: %w", tmpl.Script, err)
	}
	exportFn, ok := goja.AssertFunction(vm.Get(tmpl.Export))
	if !ok {
		return value.Null, fmt.Errorf("script: export %q is not a function in %q", tmpl.Export, tmpl.Script)
	}

	result, err := exportFn(goja.Undefined(), vm.ToValue(scope.Value.As()), vm.ToValue(scope.Args.As()))
	if err != nil {
		return value.Null, fmt.Errorf("script: invoking %q.%q: %w", tmpl.Script, tmpl.Export, err)
	}
	return value.FromAny(result.Export()), nil
}
