package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/media"
)

// UploadHandler handles video file uploads
type UploadHandler struct {
	submitter Submitter
	uploadDir string
	maxSizeMB int
	logger    zerolog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(submitter Submitter, uploadDir string, maxSizeMB int, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		submitter: submitter,
		uploadDir: uploadDir,
		maxSizeMB: maxSizeMB,
		logger:    logger.With().Str("component", "upload").Logger(),
	}
}

// Handle saves the uploaded video and submits it for processing
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	// Get uploaded file
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	// Validate file size
	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB),
			"code":  "ERR_FILE_TOO_LARGE",
		})
	}

	// Validate file format
	if !media.IsSupportedContainer(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported video format",
			"code":  "ERR_INVALID_FORMAT",
		})
	}

	recipe, err := ParseRecipe([]byte(c.FormValue("recipe")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid recipe: %v", err),
			"code":  "ERR_INVALID_RECIPE",
		})
	}

	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		h.logger.Error().Err(err).Str("dir", h.uploadDir).Msg("failed to create upload directory")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	// Generate unique filename
	extension := strings.ToLower(filepath.Ext(file.Filename))
	savedPath := filepath.Join(h.uploadDir, uuid.New().String()+extension)

	if err := c.SaveFile(file, savedPath); err != nil {
		h.logger.Error().Err(err).Str("path", savedPath).Msg("failed to save uploaded file")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	absPath, err := filepath.Abs(savedPath)
	if err != nil {
		absPath = savedPath
	}

	taskID := h.submitter.Submit(absPath, recipe)
	h.logger.Info().
		Str("task_id", taskID).
		Str("filename", file.Filename).
		Int64("size", file.Size).
		Msg("upload accepted")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": taskID,
		"message": "Video processing started.",
	})
}
