package api

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func (v *Server) listConversations(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	take := c.QueryInt("take", 0)
	offset := c.QueryInt("offset", 0)

	count, conversations, err := v.service.ListConversations(exts.CurrentUser(c), take, offset)
	if err != nil {
		return exts.ErrorOf(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  conversations,
	})
}

func (v *Server) getConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	if conversation, err := v.service.GetConversation(uint(conversationId), exts.CurrentUser(c)); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(conversation)
	}
}

func (v *Server) createConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var data services.ConversationInput
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if conversation, err := v.service.CreateConversation(exts.CurrentUser(c), data); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(conversation)
	}
}

func (v *Server) editConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	var data struct {
		Name        *string `json:"name" validate:"omitempty,max=256"`
		Description *string `json:"description" validate:"omitempty,max=4096"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if conversation, err := v.service.UpdateConversation(uint(conversationId), exts.CurrentUser(c), data.Name, data.Description); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(conversation)
	}
}

func (v *Server) addParticipant(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	var data struct {
		UserID uint `json:"user_id" validate:"required"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if conversation, err := v.service.AddParticipant(uint(conversationId), exts.CurrentUser(c), data.UserID); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(conversation)
	}
}

func (v *Server) removeParticipant(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)
	userId, _ := c.ParamsInt("userId", 0)

	if conversation, err := v.service.RemoveParticipant(uint(conversationId), exts.CurrentUser(c), uint(userId)); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(conversation)
	}
}

func (v *Server) leaveConversation(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	if err := v.service.LeaveConversation(uint(conversationId), exts.CurrentUser(c)); err != nil {
		return exts.ErrorOf(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (v *Server) editMyParticipant(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	var data struct {
		Nick    *string `json:"nick" validate:"omitempty,max=256"`
		IsMuted *bool   `json:"is_muted"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if member, err := v.service.UpdateMyParticipant(uint(conversationId), exts.CurrentUser(c), data.Nick, data.IsMuted); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(member)
	}
}

func (v *Server) markConversationRead(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	readAt, err := v.service.MarkConversationRead(uint(conversationId), exts.CurrentUser(c))
	if err != nil {
		return exts.ErrorOf(err)
	}
	return c.JSON(fiber.Map{
		"conversation_id": conversationId,
		"read_at":         readAt,
	})
}
