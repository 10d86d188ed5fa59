// Package clrt talks to the OpenCL driver: it lists platforms and devices
// and builds a kernel to read back the argument metadata the driver sees.
//
// The driver-backed implementation needs cgo and an OpenCL ICD loader and is
// compiled only with the "opencl" build tag. Without it every entry point
// returns ErrNotBuilt, while Compare is always available.
package clrt

// DeviceType describes the class of an OpenCL device.
type DeviceType string

const (
	DeviceTypeGPU         DeviceType = "GPU"
	DeviceTypeCPU         DeviceType = "CPU"
	DeviceTypeAccelerator DeviceType = "Accelerator"
	DeviceTypeDefault     DeviceType = "Default"
	DeviceTypeUnknown     DeviceType = "Unknown"
)

// DeviceInfo captures metadata about an OpenCL device.
type DeviceInfo struct {
	Name            string     `json:"name" yaml:"name"`
	Vendor          string     `json:"vendor" yaml:"vendor"`
	Version         string     `json:"version" yaml:"version"`
	Type            DeviceType `json:"type" yaml:"type"`
	MaxComputeUnits uint32     `json:"maxComputeUnits" yaml:"maxComputeUnits"`
}

// PlatformInfo captures metadata about an OpenCL platform and its devices.
type PlatformInfo struct {
	Name    string       `json:"name" yaml:"name"`
	Vendor  string       `json:"vendor" yaml:"vendor"`
	Version string       `json:"version" yaml:"version"`
	Devices []DeviceInfo `json:"devices" yaml:"devices"`
}

// DriverArg is one kernel argument as reported by clGetKernelArgInfo.
type DriverArg struct {
	Name string `json:"name" yaml:"name"`
	// TypeName is the driver's spelling, e.g. "float4*".
	TypeName string `json:"typeName" yaml:"typeName"`
	// Address is "global", "local", "constant" or "private".
	Address string `json:"address" yaml:"address"`
	Const   bool   `json:"const" yaml:"const"`
}

// KernelInfo is what the driver reports for a built kernel.
type KernelInfo struct {
	Name string      `json:"name" yaml:"name"`
	Args []DriverArg `json:"args" yaml:"args"`
}

// BuildError is returned when the driver fails to compile a program. Log
// holds the compiler output.
type BuildError struct {
	Log string
	Err error
}

func (e *BuildError) Error() string {
	if e.Log == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n" + e.Log
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
