package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/varun4522/calm-sub002/internal/domain"
	"github.com/varun4522/calm-sub002/internal/errs"
	"github.com/varun4522/calm-sub002/internal/repository"
)

type sendMessageReq struct {
	ReceiverID   string `json:"receiver_id"`
	ReceiverName string `json:"receiver_name"`
	SenderName   string `json:"sender_name"`
	SenderType   string `json:"sender_type"`
	ReceiverType string `json:"receiver_type"`
	Message      string `json:"message"`
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	userID := c.Locals("user_id").(string)

	stored, err := s.svc.Send(c.Context(), domain.Message{
		SenderID:     userID,
		ReceiverID:   req.ReceiverID,
		SenderName:   req.SenderName,
		ReceiverName: req.ReceiverName,
		SenderType:   domain.Role(req.SenderType),
		ReceiverType: domain.Role(req.ReceiverType),
		Body:         req.Message,
	})
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

func (s *Server) listThread(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	other := c.Params("user_id")
	msgs, err := s.svc.Thread(c.Context(), userID, other)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func (s *Server) clearThread(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	other := c.Params("user_id")
	if err := s.svc.ClearThread(c.Context(), userID, other); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "cleared"})
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if err := s.svc.DeleteMessage(c.Context(), c.Params("msg_id"), userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "message not found")
		}
		if errors.Is(err, errs.ErrUnauthorized) {
			return fiber.NewError(fiber.StatusForbidden, "not a participant")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	if err := s.svc.MarkRead(c.Context(), c.Params("msg_id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "message not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	convs, err := s.svc.Conversations(c.Context(), userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"conversations": convs})
}

func (s *Server) getPresence(c *fiber.Ctx) error {
	st, err := s.svc.Presence(c.Context(), c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(st)
}

type aliasReq struct {
	Alias string `json:"alias"`
}

func (s *Server) getAlias(c *fiber.Ctx) error {
	a, err := s.aliases.Get(c.Params("user_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"alias": a})
}

func (s *Server) putAlias(c *fiber.Ctx) error {
	var req aliasReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	if req.Alias == "" {
		return fiber.NewError(fiber.StatusBadRequest, "alias required")
	}
	if err := s.aliases.Set(c.Params("user_id"), req.Alias); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) deleteAlias(c *fiber.Ctx) error {
	if err := s.aliases.Remove(c.Params("user_id")); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) attachmentURL(c *fiber.Ctx) error {
	if s.resolver == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "object storage not configured")
	}
	url, err := s.resolver.ResolveURL(c.Context(), c.Params("key"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"url": url})
}
