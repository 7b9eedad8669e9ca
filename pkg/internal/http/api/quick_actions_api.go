package api

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"github.com/gofiber/fiber/v2"
)

// quickReply is a simplified API for replying to a message
// It used in the notification actions and only supports plain text
func (v *Server) quickReply(c *fiber.Ctx) error {
	replyTk := c.Query("replyToken")
	if len(replyTk) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "reply token is required")
	}

	conversationId, _ := c.ParamsInt("conversationId", 0)
	messageId, _ := c.ParamsInt("messageId", 0)

	var data struct {
		Content string `json:"content" validate:"required,max=8192"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	if message, err := v.service.QuickReply(replyTk, uint(conversationId), uint(messageId), data.Content); err != nil {
		return exts.ErrorOf(err)
	} else {
		return c.JSON(message)
	}
}
