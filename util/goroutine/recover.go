package goroutine

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

const (
	// StackTraceBufferSize is the buffer size for stack trace collection
	StackTraceBufferSize = 4096
)

// PanicError is the error a recovered worker panic is turned into.
type PanicError struct {
	Worker string
	Value  interface{}
	Stack  string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Worker, e.Value)
}

// Recover recovers from a panic in a worker goroutine and logs it.
// If logger is nil, falls back to stderr to ensure the panic is recorded.
func Recover(name string, logger *zap.SugaredLogger) {
	if r := recover(); r != nil {
		report(name, r, stack(), logger)
	}
}

// RecoverInto is like Recover but also stores the panic in *errp as a
// *PanicError, so the caller can attribute it to the unit of work that
// was running. It must be called directly by defer.
func RecoverInto(name string, logger *zap.SugaredLogger, errp *error) {
	if r := recover(); r != nil {
		trace := stack()
		report(name, r, trace, logger)
		if errp != nil {
			*errp = &PanicError{Worker: name, Value: r, Stack: trace}
		}
	}
}

func stack() string {
	buf := make([]byte, StackTraceBufferSize)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

func report(name string, r interface{}, trace string, logger *zap.SugaredLogger) {
	if logger != nil {
		logger.Errorw("Worker panic recovered",
			"worker", name,
			"panic", r,
			"stack", trace)
		return
	}
	fmt.Fprintf(os.Stderr, "PANIC in worker %s (no logger): %v\n%s\n", name, r, trace)
}
