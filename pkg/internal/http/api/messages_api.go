package api

import (
	"time"

	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if len(raw) == 0 {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+key+" timestamp, requires RFC3339")
	}
	return lo.ToPtr(parsed.UTC()), nil
}

func (v *Server) listMessages(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)

	before, err := parseTimeQuery(c, "before")
	if err != nil {
		return err
	}
	after, err := parseTimeQuery(c, "after")
	if err != nil {
		return err
	}

	count, messages, err := v.service.ListMessages(uint(conversationId), exts.CurrentUser(c), services.MessageQuery{
		Take:   c.QueryInt("take", 0),
		Offset: c.QueryInt("offset", 0),
		Before: before,
		After:  after,
	})
	if err != nil {
		return exts.ErrorOf(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
		"data":  messages,
	})
}

func (v *Server) checkHasNewMessages(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	conversationId, _ := c.ParamsInt("conversationId", 0)
	pivot := c.QueryInt("pivot", 0)
	if pivot <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "pivot must be greater than zero")
	}

	count, err := v.service.CheckHasNewMessages(uint(conversationId), exts.CurrentUser(c), uint(pivot))
	if err != nil {
		return exts.ErrorOf(err)
	}

	return c.JSON(fiber.Map{
		"count": count,
	})
}

func (v *Server) sendMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var data services.MessageInput
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if message, err := v.service.SendMessage(exts.CurrentUser(c), data); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) getMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	if message, err := v.service.GetMessage(uint(messageId), exts.CurrentUser(c)); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) editMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	var data struct {
		Content  *string        `json:"content"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if message, err := v.service.UpdateMessage(uint(messageId), exts.CurrentUser(c), data.Content, data.Metadata); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) deleteMessage(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	if message, err := v.service.DeleteMessage(uint(messageId), exts.CurrentUser(c)); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) searchMessages(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var conversationId *uint
	if id := c.QueryInt("conversation_id", 0); id > 0 {
		conversationId = lo.ToPtr(uint(id))
	}

	messages, err := v.service.SearchMessages(exts.CurrentUser(c), c.Query("q"), conversationId, c.QueryInt("take", 0))
	if err != nil {
		return exts.ErrorOf(err)
	}

	return c.JSON(fiber.Map{
		"count": len(messages),
		"data":  messages,
	})
}

func (v *Server) addReaction(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	var data services.ReactionInput
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if message, err := v.service.AddReaction(uint(messageId), exts.CurrentUser(c), data.Emoji); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) removeReaction(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	emoji := c.Query("emoji")
	if len(emoji) == 0 {
		var data services.ReactionInput
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}
		emoji = data.Emoji
	}

	if message, err := v.service.RemoveReaction(uint(messageId), exts.CurrentUser(c), emoji); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}

func (v *Server) markMessageRead(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}
	messageId, _ := c.ParamsInt("messageId", 0)

	if receipt, err := v.service.MarkMessageRead(uint(messageId), exts.CurrentUser(c)); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(receipt)
	}
}
