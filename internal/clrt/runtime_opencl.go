//go:build opencl

package clrt

/*
#cgo LDFLAGS: -lOpenCL
#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS
#include <stdlib.h>
#include <CL/cl.h>

static const char* clrt_error_string(cl_int status) {
	switch (status) {
	case CL_SUCCESS: return "CL_SUCCESS";
	case CL_DEVICE_NOT_FOUND: return "CL_DEVICE_NOT_FOUND";
	case CL_DEVICE_NOT_AVAILABLE: return "CL_DEVICE_NOT_AVAILABLE";
	case CL_COMPILER_NOT_AVAILABLE: return "CL_COMPILER_NOT_AVAILABLE";
	case CL_OUT_OF_RESOURCES: return "CL_OUT_OF_RESOURCES";
	case CL_OUT_OF_HOST_MEMORY: return "CL_OUT_OF_HOST_MEMORY";
	case CL_BUILD_PROGRAM_FAILURE: return "CL_BUILD_PROGRAM_FAILURE";
	case CL_KERNEL_ARG_INFO_NOT_AVAILABLE: return "CL_KERNEL_ARG_INFO_NOT_AVAILABLE";
	case CL_INVALID_VALUE: return "CL_INVALID_VALUE";
	case CL_INVALID_PLATFORM: return "CL_INVALID_PLATFORM";
	case CL_INVALID_DEVICE: return "CL_INVALID_DEVICE";
	case CL_INVALID_CONTEXT: return "CL_INVALID_CONTEXT";
	case CL_INVALID_BINARY: return "CL_INVALID_BINARY";
	case CL_INVALID_BUILD_OPTIONS: return "CL_INVALID_BUILD_OPTIONS";
	case CL_INVALID_PROGRAM: return "CL_INVALID_PROGRAM";
	case CL_INVALID_PROGRAM_EXECUTABLE: return "CL_INVALID_PROGRAM_EXECUTABLE";
	case CL_INVALID_KERNEL_NAME: return "CL_INVALID_KERNEL_NAME";
	case CL_INVALID_KERNEL_DEFINITION: return "CL_INVALID_KERNEL_DEFINITION";
	case CL_INVALID_KERNEL: return "CL_INVALID_KERNEL";
	case CL_INVALID_ARG_INDEX: return "CL_INVALID_ARG_INDEX";
	case CL_INVALID_OPERATION: return "CL_INVALID_OPERATION";
	default: return "CL_UNKNOWN_ERROR";
	}
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// Runtime owns an OpenCL context on one device.
type Runtime struct {
	deviceID C.cl_device_id
	context  C.cl_context
	Platform PlatformInfo
	Device   DeviceInfo
}

// ErrNotBuilt is never returned by this build.
var ErrNotBuilt = errors.New("opencl support requires building with '-tags opencl'")

// ErrNoDevices indicates that no usable OpenCL devices were found.
var ErrNoDevices = errors.New("no OpenCL devices found")

// Available reports whether this binary can talk to an OpenCL driver.
func Available() bool { return true }

// InitOpenCL selects a device (GPU preferred, then CPU) and creates a context.
func InitOpenCL() (*Runtime, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}

	platform, device, ok := pickDevice(records, DeviceTypeGPU, DeviceTypeCPU)
	if !ok {
		return nil, ErrNoDevices
	}

	var status C.cl_int
	context := C.clCreateContext(nil, 1, &device.id, nil, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateContext", status)
	}

	return &Runtime{
		deviceID: device.id,
		context:  context,
		Platform: platform.info,
		Device:   device.info,
	}, nil
}

// pickDevice returns the first device of the earliest preferred type, or
// the first device at all.
func pickDevice(records []platformRecord, prefer ...DeviceType) (platformRecord, deviceRecord, bool) {
	for _, want := range prefer {
		for _, platform := range records {
			for _, device := range platform.devices {
				if device.info.Type == want {
					return platform, device, true
				}
			}
		}
	}
	for _, platform := range records {
		if len(platform.devices) > 0 {
			return platform, platform.devices[0], true
		}
	}
	return platformRecord{}, deviceRecord{}, false
}

// Close releases OpenCL resources.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.context != nil {
		C.clReleaseContext(r.context)
		r.context = nil
	}
}

// BuildKernel compiles src for the runtime's device and reports the
// arguments of the kernel called name.
func (r *Runtime) BuildKernel(src, name string) (*KernelInfo, error) {
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))

	var status C.cl_int
	program := C.clCreateProgramWithSource(r.context, 1, &csrc, nil, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateProgramWithSource", status)
	}
	defer C.clReleaseProgram(program)

	opts := C.CString("-cl-kernel-arg-info")
	defer C.free(unsafe.Pointer(opts))

	status = C.clBuildProgram(program, 1, &r.deviceID, opts, nil, nil)
	if status != C.CL_SUCCESS {
		return nil, &BuildError{Log: r.buildLog(program), Err: statusError("clBuildProgram", status)}
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	kernel := C.clCreateKernel(program, cname, &status)
	if status != C.CL_SUCCESS {
		return nil, statusError("clCreateKernel", status)
	}
	defer C.clReleaseKernel(kernel)

	var numArgs C.cl_uint
	status = C.clGetKernelInfo(kernel, C.CL_KERNEL_NUM_ARGS, C.size_t(unsafe.Sizeof(numArgs)), unsafe.Pointer(&numArgs), nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetKernelInfo(numArgs)", status)
	}

	info := &KernelInfo{Name: name, Args: make([]DriverArg, 0, int(numArgs))}
	for i := C.cl_uint(0); i < numArgs; i++ {
		arg, err := kernelArg(kernel, i)
		if err != nil {
			return nil, err
		}
		info.Args = append(info.Args, arg)
	}
	return info, nil
}

func (r *Runtime) buildLog(program C.cl_program) string {
	var size C.size_t
	status := C.clGetProgramBuildInfo(program, r.deviceID, C.CL_PROGRAM_BUILD_LOG, 0, nil, &size)
	if status != C.CL_SUCCESS || size == 0 {
		return ""
	}

	buf := make([]byte, int(size))
	status = C.clGetProgramBuildInfo(program, r.deviceID, C.CL_PROGRAM_BUILD_LOG, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return ""
	}
	return trimNull(buf)
}

func kernelArg(kernel C.cl_kernel, index C.cl_uint) (DriverArg, error) {
	name, err := getKernelArgString(kernel, index, C.CL_KERNEL_ARG_NAME)
	if err != nil {
		return DriverArg{}, err
	}
	typeName, err := getKernelArgString(kernel, index, C.CL_KERNEL_ARG_TYPE_NAME)
	if err != nil {
		return DriverArg{}, err
	}

	var address C.cl_kernel_arg_address_qualifier
	status := C.clGetKernelArgInfo(kernel, index, C.CL_KERNEL_ARG_ADDRESS_QUALIFIER, C.size_t(unsafe.Sizeof(address)), unsafe.Pointer(&address), nil)
	if status != C.CL_SUCCESS {
		return DriverArg{}, statusError("clGetKernelArgInfo(address)", status)
	}

	var typeQual C.cl_kernel_arg_type_qualifier
	status = C.clGetKernelArgInfo(kernel, index, C.CL_KERNEL_ARG_TYPE_QUALIFIER, C.size_t(unsafe.Sizeof(typeQual)), unsafe.Pointer(&typeQual), nil)
	if status != C.CL_SUCCESS {
		return DriverArg{}, statusError("clGetKernelArgInfo(typeQualifier)", status)
	}

	return DriverArg{
		Name:     name,
		TypeName: typeName,
		Address:  mapAddress(address),
		Const:    typeQual&C.CL_KERNEL_ARG_TYPE_CONST != 0,
	}, nil
}

func mapAddress(q C.cl_kernel_arg_address_qualifier) string {
	switch q {
	case C.CL_KERNEL_ARG_ADDRESS_GLOBAL:
		return "global"
	case C.CL_KERNEL_ARG_ADDRESS_LOCAL:
		return "local"
	case C.CL_KERNEL_ARG_ADDRESS_CONSTANT:
		return "constant"
	default:
		return "private"
	}
}

// EnumeratePlatforms returns discovered platforms with their devices.
func EnumeratePlatforms() ([]PlatformInfo, error) {
	records, err := enumeratePlatformRecords()
	if err != nil {
		return nil, err
	}

	out := make([]PlatformInfo, len(records))
	for i, platform := range records {
		out[i] = platform.info
	}
	return out, nil
}

type platformRecord struct {
	id      C.cl_platform_id
	info    PlatformInfo
	devices []deviceRecord
}

type deviceRecord struct {
	id   C.cl_device_id
	info DeviceInfo
}

func enumeratePlatformRecords() ([]platformRecord, error) {
	var count C.cl_uint
	status := C.clGetPlatformIDs(0, nil, &count)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(count)", status)
	}
	if count == 0 {
		return nil, nil
	}

	platformIDs := make([]C.cl_platform_id, int(count))
	status = C.clGetPlatformIDs(count, &platformIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetPlatformIDs(list)", status)
	}

	records := make([]platformRecord, 0, int(count))
	for _, pid := range platformIDs {
		rec := platformRecord{id: pid}
		var err error
		if rec.info.Name, err = getPlatformString(pid, C.CL_PLATFORM_NAME); err != nil {
			return nil, err
		}
		if rec.info.Vendor, err = getPlatformString(pid, C.CL_PLATFORM_VENDOR); err != nil {
			return nil, err
		}
		if rec.info.Version, err = getPlatformString(pid, C.CL_PLATFORM_VERSION); err != nil {
			return nil, err
		}

		devices, err := enumerateDevices(pid)
		if err != nil && !errors.Is(err, ErrNoDevices) {
			return nil, err
		}

		rec.devices = devices
		rec.info.Devices = make([]DeviceInfo, len(devices))
		for i, device := range devices {
			rec.info.Devices[i] = device.info
		}
		records = append(records, rec)
	}

	return records, nil
}

func enumerateDevices(platform C.cl_platform_id) ([]deviceRecord, error) {
	var count C.cl_uint
	status := C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, 0, nil, &count)
	if status == C.CL_DEVICE_NOT_FOUND || (status == C.CL_SUCCESS && count == 0) {
		return nil, ErrNoDevices
	}
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(count)", status)
	}

	deviceIDs := make([]C.cl_device_id, int(count))
	status = C.clGetDeviceIDs(platform, C.CL_DEVICE_TYPE_ALL, count, &deviceIDs[0], nil)
	if status != C.CL_SUCCESS {
		return nil, statusError("clGetDeviceIDs(list)", status)
	}

	devices := make([]deviceRecord, 0, int(count))
	for _, id := range deviceIDs {
		info, err := buildDeviceInfo(id)
		if err != nil {
			return nil, err
		}
		devices = append(devices, deviceRecord{id: id, info: info})
	}
	return devices, nil
}

func buildDeviceInfo(id C.cl_device_id) (DeviceInfo, error) {
	name, err := getDeviceString(id, C.CL_DEVICE_NAME)
	if err != nil {
		return DeviceInfo{}, err
	}
	vendor, err := getDeviceString(id, C.CL_DEVICE_VENDOR)
	if err != nil {
		return DeviceInfo{}, err
	}
	version, err := getDeviceString(id, C.CL_DEVICE_VERSION)
	if err != nil {
		return DeviceInfo{}, err
	}

	var rawType C.cl_device_type
	status := C.clGetDeviceInfo(id, C.CL_DEVICE_TYPE, C.size_t(unsafe.Sizeof(rawType)), unsafe.Pointer(&rawType), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(type)", status)
	}

	var computeUnits C.cl_uint
	status = C.clGetDeviceInfo(id, C.CL_DEVICE_MAX_COMPUTE_UNITS, C.size_t(unsafe.Sizeof(computeUnits)), unsafe.Pointer(&computeUnits), nil)
	if status != C.CL_SUCCESS {
		return DeviceInfo{}, statusError("clGetDeviceInfo(computeUnits)", status)
	}

	return DeviceInfo{
		Name:            name,
		Vendor:          vendor,
		Version:         version,
		Type:            mapDeviceType(rawType),
		MaxComputeUnits: uint32(computeUnits),
	}, nil
}

func getPlatformString(id C.cl_platform_id, param C.cl_platform_info) (string, error) {
	var size C.size_t
	status := C.clGetPlatformInfo(id, param, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	status = C.clGetPlatformInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetPlatformInfo(value)", status)
	}
	return trimNull(buf), nil
}

func getDeviceString(id C.cl_device_id, param C.cl_device_info) (string, error) {
	var size C.size_t
	status := C.clGetDeviceInfo(id, param, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	status = C.clGetDeviceInfo(id, param, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetDeviceInfo(value)", status)
	}
	return trimNull(buf), nil
}

func getKernelArgString(kernel C.cl_kernel, index C.cl_uint, param C.cl_kernel_arg_info) (string, error) {
	var size C.size_t
	status := C.clGetKernelArgInfo(kernel, index, param, 0, nil, &size)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetKernelArgInfo(size)", status)
	}
	if size == 0 {
		return "", nil
	}

	buf := make([]byte, int(size))
	status = C.clGetKernelArgInfo(kernel, index, param, size, unsafe.Pointer(&buf[0]), nil)
	if status != C.CL_SUCCESS {
		return "", statusError("clGetKernelArgInfo(value)", status)
	}
	return trimNull(buf), nil
}

func trimNull(buf []byte) string {
	if len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return string(buf)
}

func mapDeviceType(dt C.cl_device_type) DeviceType {
	switch {
	case dt&C.CL_DEVICE_TYPE_GPU != 0:
		return DeviceTypeGPU
	case dt&C.CL_DEVICE_TYPE_CPU != 0:
		return DeviceTypeCPU
	case dt&C.CL_DEVICE_TYPE_ACCELERATOR != 0:
		return DeviceTypeAccelerator
	case dt&C.CL_DEVICE_TYPE_DEFAULT != 0:
		return DeviceTypeDefault
	default:
		return DeviceTypeUnknown
	}
}

func statusError(prefix string, status C.cl_int) error {
	return fmt.Errorf("%s: %s (%d)", prefix, C.GoString(C.clrt_error_string(status)), int(status))
}
