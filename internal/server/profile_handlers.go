package server

import (
	"pulse/internal/models"
	"pulse/internal/store"
	"pulse/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/profile
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user := s.session.Current()
	if user == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Profile", "current"))
	}
	return c.JSON(user)
}

// CompleteProfile handles PUT /api/profile. It creates the profile record
// after signup; identifier, quota, and premium status are assigned here, not
// taken from the request.
func (s *Server) CompleteProfile(c *fiber.Ctx) error {
	var req store.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := validation.ValidateDisplayName(req.Name); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}
	if err := validation.ValidateAge(req.Age); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	user, err := s.session.UpdateProfile(c.UserContext(), req)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// UpdateSettings handles PATCH /api/profile/settings. Absent fields are left
// untouched.
func (s *Server) UpdateSettings(c *fiber.Ctx) error {
	var patch store.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if patch.Name != nil {
		if err := validation.ValidateDisplayName(*patch.Name); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}
	if patch.Age != nil {
		if err := validation.ValidateAge(*patch.Age); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	user, err := s.session.UpdateSettings(c.UserContext(), patch)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(user)
}

// UpdateGenderPreference handles PUT /api/profile/gender-preference
func (s *Server) UpdateGenderPreference(c *fiber.Ctx) error {
	var req struct {
		GenderPreference models.GenderPreference `json:"genderPreference"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.session.UpdateGenderPreference(c.UserContext(), req.GenderPreference)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(user)
}

// SetPremium handles PUT /api/profile/premium
func (s *Server) SetPremium(c *fiber.Ctx) error {
	var req struct {
		Premium bool `json:"premium"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.session.SetPremium(c.UserContext(), req.Premium)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(user)
}

// DecrementCall handles POST /api/profile/calls/decrement
func (s *Server) DecrementCall(c *fiber.Ctx) error {
	user, err := s.session.DecrementCall(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(user)
}

// GetOnboarding handles GET /api/onboarding
func (s *Server) GetOnboarding(c *fiber.Ctx) error {
	seen, err := s.session.HasSeenOnboarding(c.UserContext())
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"seen": seen})
}

// MarkOnboardingSeen handles POST /api/onboarding
func (s *Server) MarkOnboardingSeen(c *fiber.Ctx) error {
	if err := s.session.MarkOnboardingSeen(c.UserContext()); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"seen": true})
}
