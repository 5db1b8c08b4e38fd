package xlpatch

import (
	"errors"
	"runtime"
	"strings"
)

// Methods reported in Result.Method.
const (
	MethodInProcess = "in-process"
	MethodHost      = "host"
)

// StackFrame is one frame of the call stack captured at a rejection.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Result is the outcome of one request.
type Result struct {
	Success    bool   `json:"success"`
	OutputPath string `json:"outputPath,omitempty"`
	Method     string `json:"method,omitempty"`
	Strategy   string `json:"strategy,omitempty"`

	Error string       `json:"error,omitempty"`
	Stack []StackFrame `json:"traceback,omitempty"`

	// RequiresHostApplication is set when the in-process writer could not
	// handle the document and no host bridge was available.
	RequiresHostApplication bool `json:"requiresHostApplication,omitempty"`

	Err error `json:"-"`
}

func applied(outputPath, method, strategy string) Result {
	return Result{Success: true, OutputPath: outputPath, Method: method, Strategy: strategy}
}

func rejected(strategy string, err error) Result {
	var wi *WriterIncompatibilityError
	return Result{
		Strategy:                strategy,
		Error:                   err.Error(),
		Stack:                   captureStack(3),
		RequiresHostApplication: errors.As(err, &wi),
		Err:                     err,
	}
}

// captureStack records the caller's stack, skipping runtime frames.
func captureStack(skip int) []StackFrame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var out []StackFrame
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, "runtime.") && !strings.HasPrefix(f.Function, "testing.") {
			out = append(out, StackFrame{Function: f.Function, File: f.File, Line: f.Line})
		}
		if !more {
			break
		}
	}
	return out
}
