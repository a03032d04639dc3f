package models

// PermissionState is the normalized grant status of a device capability.
type PermissionState string

// Capability grant states. A denial is terminal until the user flips the
// capability in system settings; there is no retry policy.
const (
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
	PermissionUndetermined PermissionState = "undetermined"
)

// PermissionStatus is the combined camera/microphone grant status.
type PermissionStatus struct {
	Camera     PermissionState `json:"camera"`
	Microphone PermissionState `json:"microphone"`
}

// AllGranted reports whether both capabilities are granted.
func (s PermissionStatus) AllGranted() bool {
	return s.Camera == PermissionGranted && s.Microphone == PermissionGranted
}

// PermissionRequestResult is the outcome of requesting both capabilities.
type PermissionRequestResult struct {
	Camera     bool `json:"camera"`
	Microphone bool `json:"microphone"`
}
