package server

import (
	"pulse/internal/models"
	"pulse/internal/store"

	"github.com/gofiber/fiber/v2"
)

// GetChats handles GET /api/chats
func (s *Server) GetChats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"chats": s.chats.Chats()})
}

// GetActiveChats handles GET /api/chats/active
func (s *Server) GetActiveChats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"chats": s.chats.ActiveChats()})
}

// AddChat handles POST /api/chats
func (s *Server) AddChat(c *fiber.Ctx) error {
	var req store.AddChatInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	chat, err := s.chats.AddChat(c.UserContext(), req)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

// GetChat handles GET /api/chats/:id
func (s *Server) GetChat(c *fiber.Ctx) error {
	id := c.Params("id")
	chat, ok := s.chats.Chat(id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Chat", id))
	}
	return c.JSON(chat)
}

// DeactivateChat handles POST /api/chats/:id/deactivate. The record stays;
// the active rail stops showing it.
func (s *Server) DeactivateChat(c *fiber.Ctx) error {
	if err := s.chats.MarkInactive(c.UserContext(), c.Params("id")); err != nil {
		return respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat deactivated"})
}

// GetChatMessages handles GET /api/chats/:id/messages
func (s *Server) GetChatMessages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"messages": s.chats.Messages(c.Params("id"))})
}

// SendChatMessage handles POST /api/chats/:id/messages
func (s *Server) SendChatMessage(c *fiber.Ctx) error {
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

	id := c.Params("id")
	chat, ok := s.chats.Chat(id)
	if !ok {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Chat", id))
	}
	// Group chats carry the speaker's display name as the sender; one-on-one
	// chats stick to the me/them discriminator.
	if chat.Type != models.ChatTypeGroup && sender != models.SenderMe && sender != models.SenderThem {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Sender must be 'me' or 'them'"))
	}

	message, err := s.chats.AddMessage(c.UserContext(), id, req.Text, sender)
	if err != nil {
		return respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}
