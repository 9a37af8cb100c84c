package main

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/data"
	"github.com/krpetrov/svyaz/internal/middleware"
)

const maxUploadBytes = 25 << 20

// handleUpload stores an attachment on disk and routes it as a message, so
// online participants receive it the same way they receive text.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	claims, _ := middleware.ClaimsFromCtx(c)

	chatID := c.FormValue("chat_id")
	if chatID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "chat_id is required")
	}
	msgType := c.FormValue("message_type")
	if msgType == "" {
		msgType = data.MessageTypeFile
	}
	if msgType == data.MessageTypeText || !data.ValidMessageType(msgType) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid message type for upload")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if fileHeader.Size > maxUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}

	// Client-supplied names never touch the filesystem path.
	name := uuid.NewString() + sanitizeExt(fileHeader.Filename)
	dst := filepath.Join(s.cfg.UploadDir, name)
	if err := c.SaveFile(fileHeader, dst); err != nil {
		s.logger.Error("saving upload failed", zap.String("chat_id", chatID), zap.Error(err))
		return err
	}

	content := c.FormValue("content")
	if content == "" {
		content = fileHeader.Filename
	}

	view, err := s.router.Send(c.Context(), sendMessagePayload{
		ChatID:        chatID,
		UserID:        claims.UserID,
		Content:       content,
		MessageType:   msgType,
		AttachmentURL: "/uploads/" + name,
	})
	if err != nil {
		switch {
		case errors.Is(err, data.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "chat not found")
		case errors.Is(err, data.ErrNotAuthorized):
			return fiber.NewError(fiber.StatusForbidden, "not a participant of this chat")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

// sanitizeExt keeps only a plain extension from the original filename.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
