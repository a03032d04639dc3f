package server

import (
	"pulse/internal/models"
	"pulse/internal/store"

	"github.com/gofiber/fiber/v2"
)

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"friends": s.friends.Friends()})
}

// AddFriend handles POST /api/friends
func (s *Server) AddFriend(c *fiber.Ctx) error {
	var req store.AddFriendInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Name == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name is required"))
	}

	friend, err := s.friends.AddFriend(c.UserContext(), req)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(friend)
}

// GetFriend handles GET /api/friends/:id
func (s *Server) GetFriend(c *fiber.Ctx) error {
	id := c.Params("id")
	friend, ok := s.friends.Friend(id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Friend", id))
	}
	return c.JSON(friend)
}

// RemoveFriend handles DELETE /api/friends/:id
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	if err := s.friends.RemoveFriend(c.UserContext(), c.Params("id")); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Friend removed"})
}

// GetFriendMessages handles GET /api/friends/:id/messages
func (s *Server) GetFriendMessages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": s.friends.Messages(c.Params("id"))})
}

// SendFriendMessage handles POST /api/friends/:id/messages
func (s *Server) SendFriendMessage(c *fiber.Ctx) error {
	var req struct {
		Text   string `json:"text"`
		Sender string `json:"sender"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Text == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Text is required"))
	}
	sender := req.Sender
	if sender == "" {
		sender = models.SenderMe
	}
	if sender != models.SenderMe && sender != models.SenderThem {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Sender must be 'me' or 'them'"))
	}

	message, err := s.friends.AddMessage(c.UserContext(), c.Params("id"), req.Text, sender)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}
