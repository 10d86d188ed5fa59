// Package kernelargs extracts argument metadata from the single kernel
// defined in an OpenCL source file.
//
// Extraction parses the source, requires exactly one function definition
// marked kernel or __kernel, and classifies each of its parameters into an
// Argument: pointer-ness, memory space, base type, vector width, constness
// and the host NumericKind used to size buffers. The first problem found
// aborts the whole extraction; no partial result is returned.
package kernelargs

import (
	"github.com/cwbudde/clargs/internal/clast"
	"github.com/cwbudde/clargs/internal/clparse"
)

// Parser produces a syntax tree from source text. Implementations must not
// keep state between calls.
type Parser interface {
	Parse(src string) (*clast.TranslationUnit, error)
}

// Kernel is the result of one extraction.
type Kernel struct {
	Name string     `json:"name" yaml:"name"`
	Args []Argument `json:"args" yaml:"args"`
}

// Extractor runs extraction with a given parser.
type Extractor struct {
	parser Parser
}

// NewExtractor returns an Extractor using p, or the built-in OpenCL C parser
// when p is nil.
func NewExtractor(p Parser) *Extractor {
	if p == nil {
		p = clparse.New()
	}
	return &Extractor{parser: p}
}

var defaultExtractor = NewExtractor(nil)

// Extract returns the arguments of the kernel defined in src, in declaration
// order.
func Extract(src string) ([]Argument, error) {
	return defaultExtractor.Extract(src)
}

// ExtractKernel is Extract plus the kernel's name.
func ExtractKernel(src string) (*Kernel, error) {
	return defaultExtractor.ExtractKernel(src)
}

// Extract returns the arguments of the kernel defined in src.
func (e *Extractor) Extract(src string) ([]Argument, error) {
	k, err := e.ExtractKernel(src)
	if err != nil {
		return nil, err
	}
	return k.Args, nil
}

// ExtractKernel parses src, locates its single kernel and classifies every
// parameter.
func (e *Extractor) ExtractKernel(src string) (*Kernel, error) {
	tu, err := e.parser.Parse(src)
	if err != nil {
		return nil, &ParseError{Msg: msgSyntax, Err: err}
	}
	return FromTree(tu)
}

// FromTree runs the kernel search and classification over an already parsed
// tree.
func FromTree(tu *clast.TranslationUnit) (*Kernel, error) {
	fd, err := findKernel(tu)
	if err != nil {
		return nil, err
	}

	args := make([]Argument, 0, len(fd.Params))
	for _, param := range fd.Params {
		arg, err := classify(param)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return &Kernel{Name: fd.Name, Args: args}, nil
}

// findKernel folds over the top-level definitions and returns the only one
// marked as a kernel. It stops at the second kernel it sees.
func findKernel(tu *clast.TranslationUnit) (*clast.FuncDef, error) {
	if tu == nil {
		return nil, &ParseError{Msg: ErrNoKernel.Msg}
	}
	var found *clast.FuncDef
	for _, decl := range tu.Decls {
		fd, ok := decl.(*clast.FuncDef)
		if !ok || !fd.HasSpecifier("kernel", "__kernel") {
			continue
		}
		if found != nil {
			return nil, &ParseError{Msg: ErrMultipleKernels.Msg}
		}
		found = fd
	}
	if found == nil {
		return nil, &ParseError{Msg: ErrNoKernel.Msg}
	}
	return found, nil
}
