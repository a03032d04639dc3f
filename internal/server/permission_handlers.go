package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetPermissionStatus handles GET /api/permissions
func (s *Server) GetPermissionStatus(c *fiber.Ctx) error {
	status, err := s.permissions.Check(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(status)
}

// RequestPermissions handles POST /api/permissions/request. Both prompts run
// and the flag is recorded regardless of the outcome, so the flow stays
// one-time.
func (s *Server) RequestPermissions(c *fiber.Ctx) error {
	result, err := s.permissions.RequestAll(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	if err := s.permissions.MarkRequested(c.UserContext()); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(result)
}

// MarkPermissionsRequested handles POST /api/permissions/requested. Used when
// the user skips the prompt flow.
func (s *Server) MarkPermissionsRequested(c *fiber.Ctx) error {
	if err := s.permissions.MarkRequested(c.UserContext()); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"requested": true})
}

// GetPermissionsRequested handles GET /api/permissions/requested
func (s *Server) GetPermissionsRequested(c *fiber.Ctx) error {
	requested, err := s.permissions.HasRequested(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"requested": requested})
}
