package store

import (
	"context"
	"errors"
	"sync"

	"pulse/internal/device"
	"pulse/internal/kv"
	"pulse/internal/models"
	"pulse/internal/observability"
)

// PermissionsStore tracks whether the one-time capability prompt flow has run
// and proxies capability checks to the platform. It is independent of the
// signed-in identity.
type PermissionsStore struct {
	kv   kv.Store
	caps device.Capabilities
	log  *observability.StoreLogger
}

// NewPermissionsStore constructs a permissions store over the given platform
// capability surface.
func NewPermissionsStore(store kv.Store, caps device.Capabilities) *PermissionsStore {
	return &PermissionsStore{
		kv:   store,
		caps: caps,
		log:  observability.NewStoreLogger("permissions"),
	}
}

// Check reports the current camera/microphone grant status without
// prompting.
func (s *PermissionsStore) Check(ctx context.Context) (models.PermissionStatus, error) {
	status, err := s.caps.Status(ctx)
	if err != nil {
		s.log.LogError(ctx, "check", err)
		return models.PermissionStatus{}, models.NewInternalError(err)
	}
	return status, nil
}

// RequestCamera triggers the camera prompt and reports the outcome.
func (s *PermissionsStore) RequestCamera(ctx context.Context) (bool, error) {
	granted, err := s.caps.RequestCamera(ctx)
	if err != nil {
		s.log.LogError(ctx, "request_camera", err)
		return false, models.NewInternalError(err)
	}
	s.log.LogOp(ctx, "request_camera", map[string]interface{}{"granted": granted})
	return granted, nil
}

// RequestMicrophone triggers the microphone prompt and reports the outcome.
func (s *PermissionsStore) RequestMicrophone(ctx context.Context) (bool, error) {
	granted, err := s.caps.RequestMicrophone(ctx)
	if err != nil {
		s.log.LogError(ctx, "request_microphone", err)
		return false, models.NewInternalError(err)
	}
	s.log.LogOp(ctx, "request_microphone", map[string]interface{}{"granted": granted})
	return granted, nil
}

// RequestAll runs both capability prompts in parallel and returns the
// combined result.
func (s *PermissionsStore) RequestAll(ctx context.Context) (models.PermissionRequestResult, error) {
	var (
		wg     sync.WaitGroup
		result models.PermissionRequestResult
		camErr error
		micErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Camera, camErr = s.RequestCamera(ctx)
	}()
	go func() {
		defer wg.Done()
		result.Microphone, micErr = s.RequestMicrophone(ctx)
	}()
	wg.Wait()

	if camErr != nil {
		return result, camErr
	}
	if micErr != nil {
		return result, micErr
	}
	return result, nil
}

// MarkRequested records that the one-time prompt flow has completed, whether
// the user granted or skipped it.
func (s *PermissionsStore) MarkRequested(ctx context.Context) error {
	if err := s.kv.Set(ctx, keyPermissions, []byte(flagTrueLiteral)); err != nil {
		s.log.LogError(ctx, "mark_requested", err)
		return models.NewInternalError(err)
	}
	s.log.LogOp(ctx, "mark_requested", nil)
	return nil
}

// HasRequested reports whether the one-time prompt flow already ran. Video
// session entry re-prompts only when this is false.
func (s *PermissionsStore) HasRequested(ctx context.Context) (bool, error) {
	data, err := s.kv.Get(ctx, keyPermissions)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		s.log.LogError(ctx, "has_requested", err)
		return false, models.NewInternalError(err)
	}
	return string(data) == flagTrueLiteral, nil
}
