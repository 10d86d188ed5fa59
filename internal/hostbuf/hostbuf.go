// Package hostbuf sizes and allocates host-side buffers for kernel arguments.
package hostbuf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/cwbudde/clargs/internal/kernelargs"
)

// Spec describes the host storage one kernel argument needs for a launch
// over n work items.
type Spec struct {
	Name     string                 `json:"name" yaml:"name"`
	Kind     kernelargs.NumericKind `json:"kind" yaml:"kind"`
	Elements int                    `json:"elements" yaml:"elements"` // scalar lanes, vector width included
	Bytes    int                    `json:"bytes" yaml:"bytes"`
	// HasInput is false for __local buffers: only their size is passed to
	// the device, no host data.
	HasInput bool `json:"hasInput" yaml:"hasInput"`
	IsScalar bool `json:"isScalar" yaml:"isScalar"`
}

// Plan returns one Spec per argument, in order. Pointer arguments get n
// elements of their (vector) type; scalars get a single element.
func Plan(args []kernelargs.Argument, n int) ([]Spec, error) {
	if n <= 0 {
		return nil, fmt.Errorf("buffer size must be positive, got %d", n)
	}

	specs := make([]Spec, 0, len(args))
	for _, arg := range args {
		if arg.Kind.Size() == 0 {
			return nil, fmt.Errorf("argument %s has no numeric kind", arg.Name)
		}
		count := arg.VectorWidth
		if arg.IsPointer {
			count *= n
		}
		specs = append(specs, Spec{
			Name:     arg.Name,
			Kind:     arg.Kind,
			Elements: count,
			Bytes:    count * arg.Kind.Size(),
			HasInput: arg.HasInput,
			IsScalar: arg.IsScalar,
		})
	}
	return specs, nil
}

// TotalBytes sums the host bytes of all specs with input data.
func TotalBytes(specs []Spec) int {
	total := 0
	for _, s := range specs {
		if s.HasInput {
			total += s.Bytes
		}
	}
	return total
}

// Alloc returns a zeroed Go slice matching s, e.g. []float32 for a float4
// buffer with 4n elements. Local buffers have no host storage and return nil.
func Alloc(s Spec) any {
	if !s.HasInput {
		return nil
	}
	elem := s.Kind.GoType()
	if elem == nil {
		return nil
	}
	return reflect.MakeSlice(reflect.SliceOf(elem), s.Elements, s.Elements).Interface()
}

// AllocAll allocates every spec, keyed by argument name.
func AllocAll(specs []Spec) map[string]any {
	bufs := make(map[string]any, len(specs))
	for _, s := range specs {
		if buf := Alloc(s); buf != nil {
			bufs[s.Name] = buf
		}
	}
	return bufs
}

// WriteFiles allocates every spec with host data and writes it to
// <dir>/<name>.bin as raw little-endian elements, the layout
// clEnqueueWriteBuffer expects. It returns the written paths sorted by name.
func WriteFiles(dir string, specs []Spec) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create buffer directory: %w", err)
	}

	bufs := AllocAll(specs)
	names := make([]string, 0, len(bufs))
	for name := range bufs {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name+".bin")
		if err := writeFile(path, bufs[name]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, buf any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
