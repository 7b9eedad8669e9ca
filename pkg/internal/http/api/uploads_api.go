package api

import (
	"encoding/base64"
	"io"
	"strconv"

	"git.solsynth.dev/hypernet/converse/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// upload accepts either a multipart "file" field or a JSON body carrying
// the file as base64.
func (v *Server) upload(c *fiber.Ctx) error {
	if err := exts.EnsureAuthenticated(c); err != nil {
		return err
	}

	var req services.UploadRequest
	if file, err := c.FormFile("file"); err == nil {
		reader, err := file.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer reader.Close()
		if req.Data, err = io.ReadAll(io.LimitReader(reader, services.MaxUploadSize+1)); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		req.Filename = file.Filename
		req.ContentType = file.Header.Get(fiber.HeaderContentType)
		if raw := c.FormValue("conversation_id"); len(raw) > 0 {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid conversation_id")
			}
			req.ConversationID = lo.ToPtr(uint(id))
		}
	} else {
		var data struct {
			Data           string `json:"data" validate:"required,base64"`
			Filename       string `json:"filename" validate:"required"`
			ContentType    string `json:"content_type"`
			ConversationID *uint  `json:"conversation_id"`
		}
		if err := exts.BindAndValidate(c, &data); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(data.Data)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "data is not valid base64")
		}
		req = services.UploadRequest{
			Filename:       data.Filename,
			ContentType:    data.ContentType,
			Data:           raw,
			ConversationID: data.ConversationID,
		}
	}

	result, err := v.service.Upload(c.UserContext(), exts.CurrentUser(c), req)
	if err != nil {
		return exts.ErrorOf(err)
	}
	return c.JSON(result)
}
