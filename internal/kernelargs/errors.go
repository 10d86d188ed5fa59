package kernelargs

import (
	"errors"

	"github.com/cwbudde/clargs/internal/clparse"
)

// ParseError reports a structural problem found after parsing: no kernel,
// more than one kernel, or an argument type the extractor cannot represent.
// It also wraps syntax errors from the parser.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches another *ParseError with the same message, so the sentinels
// below work with errors.Is.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Msg == e.Msg
}

var (
	ErrNoKernel         = &ParseError{Msg: "no kernel definitions"}
	ErrMultipleKernels  = &ParseError{Msg: "more than one kernel definition"}
	ErrUnsupportedType  = &ParseError{Msg: "unsupported data type"}
	ErrTooManyTypenames = &ParseError{Msg: "too many typenames"}
)

const (
	msgSyntax       = "syntax error"
	msgBothSpaces   = "argument is both global and local qualified"
	msgNeitherSpace = "argument is neither global nor local qualified"
)

// KernelArgError reports a kernel argument whose qualifiers or base type
// break the classification rules. For an unknown base type Msg is the type
// name itself.
type KernelArgError struct {
	Arg string
	Msg string
}

func (e *KernelArgError) Error() string {
	if e.Arg != "" {
		return "argument " + e.Arg + ": " + e.Msg
	}
	return e.Msg
}

// Error kind names, as surfaced by the CLI and HTTP API.
const (
	KindSyntax    = "SyntaxError"
	KindParse     = "ParseError"
	KindKernelArg = "KernelArgError"
)

// Kind returns the kind name of an extraction error, or "" for any other
// error.
func Kind(err error) string {
	var se *clparse.SyntaxError
	var pe *ParseError
	var ke *KernelArgError
	switch {
	case errors.As(err, &se):
		return KindSyntax
	case errors.As(err, &pe):
		// parser rejections from any Parser implementation
		if pe.Msg == msgSyntax {
			return KindSyntax
		}
		return KindParse
	case errors.As(err, &ke):
		return KindKernelArg
	default:
		return ""
	}
}
