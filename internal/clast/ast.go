// Package clast defines the minimal syntax tree consumed by the kernel
// argument extractor. Any parser that can populate these nodes can drive
// extraction; the tree only carries what the extractor reads.
package clast

// TranslationUnit is the root of a parsed source file.
type TranslationUnit struct {
	Decls []Decl
}

// Decl is a top-level declaration.
type Decl interface {
	declNode()
}

// FuncDef is a function definition (a declaration with a body).
type FuncDef struct {
	Name       string
	Specifiers []string // function specifiers as written, e.g. "__kernel", "inline"
	Return     Type
	Params     []*ParamDecl
	Line       int
}

// FuncDecl is a function prototype without a body.
type FuncDecl struct {
	Name       string
	Specifiers []string
	Params     []*ParamDecl
	Line       int
}

// OtherDecl stands in for any top-level declaration the extractor does not
// inspect: variables, typedefs, struct definitions.
type OtherDecl struct {
	Line int
}

func (*FuncDef) declNode()   {}
func (*FuncDecl) declNode()  {}
func (*OtherDecl) declNode() {}

// ParamDecl is a single function parameter.
type ParamDecl struct {
	Name string
	// Quals are the qualifiers of the declaration specifier list, in source
	// order. For a pointer parameter they qualify the pointee.
	Quals []string
	Type  Type
	Line  int
}

// Type is a node in a declared type chain. The set of implementations is
// closed: *Pointer, *Named, *Struct and *Array.
type Type interface {
	typeNode()
}

// Pointer is a pointer to Inner. Quals are the qualifiers written after the
// '*' (e.g. "restrict", "const").
type Pointer struct {
	Inner Type
	Quals []string
}

// Named is a type spelled by name tokens, e.g. ["float4"] or ["unsigned int"].
type Named struct {
	Names []string
	Quals []string
}

// Struct is an aggregate type referenced by tag (struct, union or enum).
type Struct struct {
	Keyword string
	Tag     string
}

// Array is a parameter declared with one or more [N] suffixes.
type Array struct {
	Inner Type
	Dim   string
}

func (*Pointer) typeNode() {}
func (*Named) typeNode()   {}
func (*Struct) typeNode()  {}
func (*Array) typeNode()   {}

// HasSpecifier reports whether any of names appears in the function
// specifiers.
func (f *FuncDef) HasSpecifier(names ...string) bool {
	for _, s := range f.Specifiers {
		for _, n := range names {
			if s == n {
				return true
			}
		}
	}
	return false
}

// ContainsQual reports whether quals contains any of names.
func ContainsQual(quals []string, names ...string) bool {
	for _, q := range quals {
		for _, n := range names {
			if q == n {
				return true
			}
		}
	}
	return false
}
