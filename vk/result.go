package vk

import "strconv"

// Result mirrors the native return code. Non-negative values are success
// codes, negative values are errors.
type Result int32

const (
	Success                   Result = 0
	NotReady                  Result = 1
	Timeout                   Result = 2
	EventSet                  Result = 3
	EventReset                Result = 4
	Incomplete                Result = 5
	ErrorOutOfHostMemory      Result = -1
	ErrorOutOfDeviceMemory    Result = -2
	ErrorInitializationFailed Result = -3
	ErrorDeviceLost           Result = -4
	ErrorMemoryMapFailed      Result = -5
	ErrorLayerNotPresent      Result = -6
	ErrorExtensionNotPresent  Result = -7
	ErrorFeatureNotPresent    Result = -8
	ErrorIncompatibleDriver   Result = -9
	ErrorTooManyObjects       Result = -10
	ErrorUnknown              Result = -13
	ErrorSurfaceLostKHR       Result = -1000000000
	ErrorOutOfDateKHR         Result = -1000001004
	ErrorValidationFailedEXT  Result = -1000011001
)

// ErrorValidationFailed is returned in place of the driver result when a
// call is skipped.
const ErrorValidationFailed = ErrorValidationFailedEXT

var resultNames = map[Result]string{
	Success:                   "VK_SUCCESS",
	NotReady:                  "VK_NOT_READY",
	Timeout:                   "VK_TIMEOUT",
	EventSet:                  "VK_EVENT_SET",
	EventReset:                "VK_EVENT_RESET",
	Incomplete:                "VK_INCOMPLETE",
	ErrorOutOfHostMemory:      "VK_ERROR_OUT_OF_HOST_MEMORY",
	ErrorOutOfDeviceMemory:    "VK_ERROR_OUT_OF_DEVICE_MEMORY",
	ErrorInitializationFailed: "VK_ERROR_INITIALIZATION_FAILED",
	ErrorDeviceLost:           "VK_ERROR_DEVICE_LOST",
	ErrorMemoryMapFailed:      "VK_ERROR_MEMORY_MAP_FAILED",
	ErrorLayerNotPresent:      "VK_ERROR_LAYER_NOT_PRESENT",
	ErrorExtensionNotPresent:  "VK_ERROR_EXTENSION_NOT_PRESENT",
	ErrorFeatureNotPresent:    "VK_ERROR_FEATURE_NOT_PRESENT",
	ErrorIncompatibleDriver:   "VK_ERROR_INCOMPATIBLE_DRIVER",
	ErrorTooManyObjects:       "VK_ERROR_TOO_MANY_OBJECTS",
	ErrorUnknown:              "VK_ERROR_UNKNOWN",
	ErrorSurfaceLostKHR:       "VK_ERROR_SURFACE_LOST_KHR",
	ErrorOutOfDateKHR:         "VK_ERROR_OUT_OF_DATE_KHR",
	ErrorValidationFailedEXT:  "VK_ERROR_VALIDATION_FAILED_EXT",
}

// Succeeded reports whether r is a success code.
func (r Result) Succeeded() bool { return r >= 0 }

func (r Result) String() string {
	if s, ok := resultNames[r]; ok {
		return s
	}
	return "VkResult(" + strconv.Itoa(int(r)) + ")"
}

// ParseResult resolves a native result name.
func ParseResult(s string) (Result, bool) {
	for r, name := range resultNames {
		if name == s {
			return r, true
		}
	}
	return 0, false
}
