//go:build !opencl

package clrt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStubReportsNotBuilt(t *testing.T) {
	assert.False(t, Available())

	_, err := InitOpenCL()
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = EnumeratePlatforms()
	assert.ErrorIs(t, err, ErrNotBuilt)

	var r *Runtime
	r.Close()
	_, err = r.BuildKernel("", "k")
	assert.ErrorIs(t, err, ErrNotBuilt)
}
