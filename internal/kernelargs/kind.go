package kernelargs

import (
	"fmt"
	"reflect"
)

// NumericKind is the fixed-width host representation of a kernel argument's
// base type.
//
// TODO: sizes are fixed; they should come from the target device (not every
// device has 32-bit int or supports double).
type NumericKind int

const (
	Invalid NumericKind = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var kindNames = map[NumericKind]string{
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var kindTypes = map[NumericKind]reflect.Type{
	Bool:    reflect.TypeOf(false),
	Int8:    reflect.TypeOf(int8(0)),
	Uint8:   reflect.TypeOf(uint8(0)),
	Int16:   reflect.TypeOf(int16(0)),
	Uint16:  reflect.TypeOf(uint16(0)),
	Int32:   reflect.TypeOf(int32(0)),
	Uint32:  reflect.TypeOf(uint32(0)),
	Int64:   reflect.TypeOf(int64(0)),
	Uint64:  reflect.TypeOf(uint64(0)),
	Float32: reflect.TypeOf(float32(0)),
	Float64: reflect.TypeOf(float64(0)),
}

// numericKinds maps OpenCL base type names to host kinds. half and void are
// storage placeholders, not faithful representations.
var numericKinds = map[string]NumericKind{
	"bool":           Bool,
	"char":           Int8,
	"double":         Float64,
	"float":          Float32,
	"half":           Uint8,
	"int":            Int32,
	"long":           Int64,
	"short":          Int16,
	"uchar":          Uint8,
	"uint":           Uint32,
	"ulong":          Uint64,
	"unsigned char":  Uint8,
	"unsigned int":   Uint32,
	"unsigned long":  Uint64,
	"unsigned short": Uint16,
	"ushort":         Uint16,
	"void":           Int64,
}

// LookupKind resolves an OpenCL base type name. Matching is exact and case
// sensitive.
func LookupKind(baseType string) (NumericKind, bool) {
	k, ok := numericKinds[baseType]
	return k, ok
}

// BaseTypes returns the base type names LookupKind accepts.
func BaseTypes() []string {
	names := make([]string, 0, len(numericKinds))
	for name := range numericKinds {
		names = append(names, name)
	}
	return names
}

func (k NumericKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("NumericKind(%d)", int(k))
}

// Size returns the size of one element in bytes.
func (k NumericKind) Size() int {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// GoType returns the Go type of one element, or nil for Invalid.
func (k NumericKind) GoType() reflect.Type {
	return kindTypes[k]
}

func (k NumericKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid numeric kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *NumericKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown numeric kind %q", string(text))
}
