package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// Error is an uncaught script error. Its Error string is the terminal line.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return "Error: " + e.Message
}

// Engine executes scripts. The zero value is ready to use.
type Engine struct{}

// NewEngine constructs an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Execute runs source as a standalone script on a fresh runtime, printing
// each console call to sink. It returns a *Error when the script throws;
// output stops at the first uncaught error.
func (e *Engine) Execute(ctx context.Context, source string, sink Sink) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if sink == nil {
		sink = SinkFunc(func(string) {})
	}
	if err := ctx.Err(); err != nil {
		return &Error{Message: err.Error()}
	}
	log := pslog.Ctx(ctx)
	vm := goja.New()
	if err := installConsole(vm, sink); err != nil {
		return fmt.Errorf("install console: %w", err)
	}

	if done := ctx.Done(); done != nil {
		finished := make(chan struct{})
		defer close(finished)
		go func() {
			select {
			case <-done:
				vm.Interrupt(ctx.Err())
			case <-finished:
			}
		}()
	}

	start := time.Now()
	_, err := vm.RunString(source)
	log.Trace("script run finished", "source_len", len(source), "duration_ms", time.Since(start).Milliseconds(), "failed", err != nil)
	if err != nil {
		return &Error{Message: errorMessage(err)}
	}
	return nil
}

// Run executes source and captures its output and terminal error.
func (e *Engine) Run(ctx context.Context, source string) schema.ExecutionResult {
	capture := &Capture{}
	err := e.Execute(ctx, source, capture)
	result := schema.ExecutionResult{OutputLines: capture.Lines()}
	if err != nil {
		var scriptErr *Error
		if !errors.As(err, &scriptErr) {
			scriptErr = &Error{Message: err.Error()}
		}
		result.Error = scriptErr.Error()
	}
	return result
}

func errorMessage(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return thrownMessage(exc.Value())
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if v := interrupted.Value(); v != nil {
			return fmt.Sprint(v)
		}
		return "execution interrupted"
	}
	return err.Error()
}

// thrownMessage prefers the message property of thrown objects and falls
// back to the string form of the thrown value.
func thrownMessage(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	if obj, ok := v.(*goja.Object); ok {
		if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
			return msg.String()
		}
	}
	return v.String()
}
