//go:build !opencl

package clrt

import "errors"

// Runtime is a placeholder when OpenCL support is not compiled.
type Runtime struct {
	Platform PlatformInfo
	Device   DeviceInfo
}

// ErrNotBuilt indicates the binary was built without OpenCL support.
var ErrNotBuilt = errors.New("opencl support requires building with '-tags opencl'")

// Available reports whether this binary can talk to an OpenCL driver.
func Available() bool { return false }

// InitOpenCL returns ErrNotBuilt.
func InitOpenCL() (*Runtime, error) {
	return nil, ErrNotBuilt
}

// Close is a no-op without OpenCL support.
func (r *Runtime) Close() {}

// BuildKernel returns ErrNotBuilt.
func (r *Runtime) BuildKernel(src, name string) (*KernelInfo, error) {
	return nil, ErrNotBuilt
}

// EnumeratePlatforms returns ErrNotBuilt.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	return nil, ErrNotBuilt
}
