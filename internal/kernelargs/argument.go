package kernelargs

import (
	"strconv"
	"strings"

	"github.com/cwbudde/clargs/internal/clast"
)

// MemorySpace is the address space a pointer argument refers to.
type MemorySpace string

const (
	SpaceNone   MemorySpace = "none"
	SpaceLocal  MemorySpace = "local"
	SpaceGlobal MemorySpace = "global"
)

// Argument describes one kernel parameter.
type Argument struct {
	Name       string   `json:"name" yaml:"name"`
	Qualifiers []string `json:"qualifiers" yaml:"qualifiers"`
	// TypeName is the type token as written, e.g. "float4".
	TypeName    string      `json:"typeName" yaml:"typeName"`
	IsPointer   bool        `json:"isPointer" yaml:"isPointer"`
	Space       MemorySpace `json:"memorySpace" yaml:"memorySpace"`
	HasInput    bool        `json:"hasInput" yaml:"hasInput"`
	BaseType    string      `json:"baseType" yaml:"baseType"`
	IsVector    bool        `json:"isVector" yaml:"isVector"`
	VectorWidth int         `json:"vectorWidth" yaml:"vectorWidth"`
	IsScalar    bool        `json:"isScalar" yaml:"isScalar"`
	IsConst     bool        `json:"isConst" yaml:"isConst"`
	Kind        NumericKind `json:"kind" yaml:"kind"`
}

// IsLocal reports whether the argument is a __local pointer.
func (a Argument) IsLocal() bool { return a.Space == SpaceLocal }

// IsGlobal reports whether the argument is a __global pointer.
func (a Argument) IsGlobal() bool { return a.Space == SpaceGlobal }

// ElementSize is the size in bytes of one (possibly vector) element.
func (a Argument) ElementSize() int {
	return a.Kind.Size() * a.VectorWidth
}

func (a Argument) String() string {
	var sb strings.Builder
	sb.WriteString("KernelArg ")
	for _, q := range a.Qualifiers {
		sb.WriteString(q)
		sb.WriteByte(' ')
	}
	sb.WriteString(a.TypeName)
	if a.IsPointer {
		sb.WriteByte('*')
	}
	sb.WriteByte(' ')
	sb.WriteString(a.Name)
	return sb.String()
}

// classify turns a parameter declaration into an Argument. Steps run in a
// fixed order and the first failure is returned.
func classify(param *clast.ParamDecl) (Argument, error) {
	arg := Argument{
		Name:       param.Name,
		Qualifiers: append(make([]string, 0, len(param.Quals)), param.Quals...),
		Space:      SpaceNone,
	}

	_, arg.IsPointer = param.Type.(*clast.Pointer)
	if arg.IsPointer {
		local := clast.ContainsQual(param.Quals, "local", "__local")
		global := clast.ContainsQual(param.Quals, "global", "__global")
		switch {
		case local && global:
			return Argument{}, &KernelArgError{Arg: param.Name, Msg: msgBothSpaces}
		case !local && !global:
			return Argument{}, &KernelArgError{Arg: param.Name, Msg: msgNeitherSpace}
		case local:
			arg.Space = SpaceLocal
		default:
			arg.Space = SpaceGlobal
		}
	}

	typename, err := resolveTypeName(param.Type)
	if err != nil {
		return Argument{}, err
	}
	arg.TypeName = typename

	arg.BaseType, arg.VectorWidth, arg.IsVector = splitVector(typename)
	arg.IsConst = clast.ContainsQual(param.Quals, "const")
	arg.HasInput = arg.Space != SpaceLocal
	arg.IsScalar = !arg.IsPointer

	kind, ok := LookupKind(arg.BaseType)
	if !ok {
		return Argument{}, &KernelArgError{Arg: param.Name, Msg: arg.BaseType}
	}
	arg.Kind = kind
	return arg, nil
}

// resolveTypeName finds the name tokens of a parameter type. Only a named
// type or a pointer to a named type is accepted.
func resolveTypeName(t clast.Type) (string, error) {
	var named *clast.Named
	switch t := t.(type) {
	case *clast.Named:
		named = t
	case *clast.Pointer:
		named, _ = t.Inner.(*clast.Named)
	}
	if named == nil {
		return "", &ParseError{Msg: ErrUnsupportedType.Msg}
	}
	if len(named.Names) != 1 {
		return "", &ParseError{Msg: ErrTooManyTypenames.Msg}
	}
	return named.Names[0], nil
}

// splitVector splits "float4" into ("float", 4, true).
func splitVector(typename string) (base string, width int, vector bool) {
	base = strings.TrimRight(typename, "0123456789")
	if typename == "" || !isDigit(typename[len(typename)-1]) {
		return base, 1, false
	}

	width, err := strconv.Atoi(typename[len(base):])
	if err != nil || width < 1 {
		// "float0" and overflowing digit runs
		width = 1
	}
	return base, width, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
