package api

import (
	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

func (v *Server) getWhatsNew(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	counts, err := v.service.UnreadCounts(exts.CurrentUser(c))
	if err != nil {
		return exts.ErrorOf(err)
	}

	return c.JSON(fiber.Map{
		"count": lo.SumBy(counts, func(item store.UnreadCount) int64 {
			return item.Count
		}),
		"data": counts,
	})
}
