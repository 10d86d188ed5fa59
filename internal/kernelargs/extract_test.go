package kernelargs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clargs/internal/clast"
	"github.com/cwbudde/clargs/internal/clparse"
)

func TestExtractScenario(t *testing.T) {
	args, err := Extract(`__kernel void f(__global float4* a, __local int* b, const int c) {}`)
	require.NoError(t, err)
	require.Len(t, args, 3)

	a := args[0]
	assert.Equal(t, "a", a.Name)
	assert.True(t, a.IsPointer)
	assert.True(t, a.IsGlobal())
	assert.False(t, a.IsLocal())
	assert.True(t, a.HasInput)
	assert.Equal(t, "float", a.BaseType)
	assert.Equal(t, "float4", a.TypeName)
	assert.True(t, a.IsVector)
	assert.Equal(t, 4, a.VectorWidth)
	assert.Equal(t, Float32, a.Kind)
	assert.Equal(t, 16, a.ElementSize())

	b := args[1]
	assert.Equal(t, "b", b.Name)
	assert.True(t, b.IsPointer)
	assert.Equal(t, SpaceLocal, b.Space)
	assert.False(t, b.HasInput)
	assert.Equal(t, "int", b.BaseType)
	assert.Equal(t, 1, b.VectorWidth)
	assert.Equal(t, Int32, b.Kind)

	c := args[2]
	assert.Equal(t, "c", c.Name)
	assert.True(t, c.IsScalar)
	assert.False(t, c.IsPointer)
	assert.Equal(t, SpaceNone, c.Space)
	assert.True(t, c.IsConst)
	assert.True(t, c.HasInput)
	assert.Equal(t, "int", c.BaseType)
	assert.Equal(t, 1, c.VectorWidth)
	assert.False(t, c.IsVector)
}

func TestExtractKernelName(t *testing.T) {
	k, err := ExtractKernel(`
inline float sq(float x) { return x * x; }
kernel void square(global const float* in, global float* out) {
	int i = get_global_id(0);
	out[i] = sq(in[i]);
}`)
	require.NoError(t, err)
	assert.Equal(t, "square", k.Name)
	require.Len(t, k.Args, 2)
	assert.Equal(t, []string{"global", "const"}, k.Args[0].Qualifiers)
	assert.True(t, k.Args[0].IsConst)
	assert.False(t, k.Args[1].IsConst)
}

func TestExtractPreservesDeclarationOrder(t *testing.T) {
	names := []string{"z", "a", "m", "b", "y"}
	src := "__kernel void k("
	for i, n := range names {
		if i > 0 {
			src += ", "
		}
		src += "int " + n
	}
	src += ") {}"

	args, err := Extract(src)
	require.NoError(t, err)
	require.Len(t, args, len(names))
	for i, n := range names {
		assert.Equal(t, n, args[i].Name)
	}
}

func TestExtractNoParameters(t *testing.T) {
	for _, src := range []string{"__kernel void k() {}", "__kernel void k(void) {}"} {
		args, err := Extract(src)
		require.NoError(t, err, src)
		assert.NotNil(t, args)
		assert.Empty(t, args)
	}
}

func TestExtractKernelCount(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "no kernels",
			src:  "void helper(int x) {}",
			want: ErrNoKernel,
		},
		{
			name: "empty source",
			src:  "",
			want: ErrNoKernel,
		},
		{
			name: "prototype only",
			src:  "__kernel void k(__global int* a);",
			want: ErrNoKernel,
		},
		{
			name: "two kernels",
			src:  "__kernel void a(__global int* x) {}\n__kernel void b(__global int* y) {}",
			want: ErrMultipleKernels,
		},
		{
			name: "mixed spellings",
			src:  "kernel void a() {}\n__kernel void b() {}",
			want: ErrMultipleKernels,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindParse, Kind(err))
		})
	}
}

func TestExtractMultipleKernelsFailsBeforeClassifying(t *testing.T) {
	// the first kernel's bad argument is never reported
	_, err := Extract("__kernel void a(float* p) {}\n__kernel void b() {}")
	assert.ErrorIs(t, err, ErrMultipleKernels)
}

func TestExtractMemorySpaceErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"neither", "__kernel void k(float* p) {}", msgNeitherSpace},
		{"constant only", "__kernel void k(__constant float* p) {}", msgNeitherSpace},
		{"both", "__kernel void k(__global __local float* p) {}", msgBothSpaces},
		{"both short spellings", "__kernel void k(global local float* p) {}", msgBothSpaces},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.src)
			var kae *KernelArgError
			require.True(t, errors.As(err, &kae), "expected *KernelArgError, got %v", err)
			assert.Equal(t, tt.msg, kae.Msg)
			assert.Equal(t, "p", kae.Arg)
			assert.Equal(t, KindKernelArg, Kind(err))
		})
	}
}

func TestExtractUnknownBaseType(t *testing.T) {
	_, err := Extract("__kernel void k(__global my_t* p) {}")
	var kae *KernelArgError
	require.True(t, errors.As(err, &kae))
	assert.Equal(t, "my_t", kae.Msg)
	assert.Contains(t, err.Error(), "my_t")
}

func TestExtractUnsupportedTypes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"struct value", "__kernel void k(struct s v) {}", ErrUnsupportedType},
		{"struct pointer", "__kernel void k(__global struct s* v) {}", ErrUnsupportedType},
		{"pointer to pointer", "__kernel void k(__global float** v) {}", ErrUnsupportedType},
		{"array", "__kernel void k(float v[4]) {}", ErrUnsupportedType},
		{"long long", "__kernel void k(long long v) {}", ErrTooManyTypenames},
		{"unsigned long long", "__kernel void k(__global unsigned long long* v) {}", ErrTooManyTypenames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := Extract("#include <foo.h>\n__kernel void k() {}")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	var se *clparse.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Line)
	assert.Equal(t, KindSyntax, Kind(err))
}

func TestNumericTableRoundTrip(t *testing.T) {
	for _, base := range BaseTypes() {
		t.Run(base, func(t *testing.T) {
			src := fmt.Sprintf("__kernel void k(__global %s* p, %s s) {}", base, base)
			args, err := Extract(src)
			require.NoError(t, err)
			require.Len(t, args, 2)
			want, _ := LookupKind(base)
			for _, a := range args {
				assert.Equal(t, base, a.BaseType)
				assert.Equal(t, want, a.Kind)
			}
		})
	}
}

func TestNumericTableMisses(t *testing.T) {
	for _, base := range []string{"Float", "signed char", "size_t", "image2d_t", "unsigned"} {
		_, err := Extract(fmt.Sprintf("__kernel void k(%s v) {}", base))
		var kae *KernelArgError
		require.True(t, errors.As(err, &kae), "%s: %v", base, err)
		assert.Equal(t, base, kae.Msg)
	}
}

// stubParser returns a canned tree so walker behaviour can be tested without
// the built-in parser.
type stubParser struct {
	tu  *clast.TranslationUnit
	err error
}

func (s stubParser) Parse(string) (*clast.TranslationUnit, error) {
	return s.tu, s.err
}

func TestExtractorWithCustomParser(t *testing.T) {
	tu := &clast.TranslationUnit{Decls: []clast.Decl{
		&clast.OtherDecl{},
		&clast.FuncDef{Name: "helper", Specifiers: []string{"inline"}},
		&clast.FuncDef{
			Name:       "k",
			Specifiers: []string{"__kernel"},
			Params: []*clast.ParamDecl{
				{Name: "v", Quals: []string{"__global"}, Type: &clast.Pointer{Inner: &clast.Named{Names: []string{"uchar16"}}}},
			},
		},
	}}

	k, err := NewExtractor(stubParser{tu: tu}).ExtractKernel("ignored")
	require.NoError(t, err)
	assert.Equal(t, "k", k.Name)
	require.Len(t, k.Args, 1)
	assert.Equal(t, "uchar", k.Args[0].BaseType)
	assert.Equal(t, 16, k.Args[0].VectorWidth)
	assert.Equal(t, Uint8, k.Args[0].Kind)

	_, err = NewExtractor(stubParser{err: errors.New("boom")}).Extract("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, KindSyntax, Kind(err))
}

func TestExtractAcceptsPragmas(t *testing.T) {
	args, err := Extract(`#pragma OPENCL EXTENSION cl_khr_fp64 : enable
__kernel void k(__global double* a, const double s) {
#pragma unroll
	for (int i = 0; i < 4; i++) a[i] *= s;
}`)
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, Float64, args[0].Kind)
	assert.True(t, args[0].IsGlobal())
	assert.Equal(t, Float64, args[1].Kind)
}

func TestExtractUnqualifiedArgumentEncodesEmptyQualifiers(t *testing.T) {
	args, err := Extract("__kernel void k(int n) {}")
	require.NoError(t, err)
	require.Len(t, args, 1)
	assert.NotNil(t, args[0].Qualifiers)
	assert.Empty(t, args[0].Qualifiers)

	data, err := json.Marshal(args[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"qualifiers":[]`)
}

func TestExtractConcurrent(t *testing.T) {
	bases := BaseTypes()
	var wg sync.WaitGroup
	errs := make(chan error, len(bases)*4)
	for i := 0; i < 4; i++ {
		for _, base := range bases {
			wg.Add(1)
			go func(base string, width int) {
				defer wg.Done()
				name := fmt.Sprintf("k_%d", width)
				k, err := ExtractKernel(fmt.Sprintf("__kernel void %s(__global %s* p, int n) {}", name, base))
				if err != nil {
					errs <- fmt.Errorf("%s: %w", base, err)
					return
				}
				if k.Name != name || len(k.Args) != 2 || k.Args[0].BaseType != base {
					errs <- fmt.Errorf("%s: unexpected result %+v", base, k)
				}
			}(base, i)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
