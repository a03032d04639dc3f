// Package device abstracts the platform's camera and microphone permission
// API. The engine never talks to OS prompt machinery directly; a Capabilities
// implementation is injected at construction time.
package device

import (
	"context"

	"pulse/internal/models"
)

// Capabilities is the platform permission surface the permissions store
// proxies to.
type Capabilities interface {
	// Status reports the current grant state of both capabilities without
	// prompting.
	Status(ctx context.Context) (models.PermissionStatus, error)

	// RequestCamera triggers the camera prompt and reports whether access
	// was granted.
	RequestCamera(ctx context.Context) (bool, error)

	// RequestMicrophone triggers the microphone prompt and reports whether
	// access was granted.
	RequestMicrophone(ctx context.Context) (bool, error)
}

// Static is a Capabilities implementation with fixed answers. The zero value
// grants nothing; Granted() grants everything, which mirrors the web target
// where no native prompt exists.
type Static struct {
	Camera     models.PermissionState
	Microphone models.PermissionState
}

// Granted returns a Static that reports both capabilities as granted.
func Granted() Static {
	return Static{
		Camera:     models.PermissionGranted,
		Microphone: models.PermissionGranted,
	}
}

func (s Static) Status(_ context.Context) (models.PermissionStatus, error) {
	status := models.PermissionStatus{Camera: s.Camera, Microphone: s.Microphone}
	if status.Camera == "" {
		status.Camera = models.PermissionUndetermined
	}
	if status.Microphone == "" {
		status.Microphone = models.PermissionUndetermined
	}
	return status, nil
}

func (s Static) RequestCamera(_ context.Context) (bool, error) {
	return s.Camera == models.PermissionGranted, nil
}

func (s Static) RequestMicrophone(_ context.Context) (bool, error) {
	return s.Microphone == models.PermissionGranted, nil
}
