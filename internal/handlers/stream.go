package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// StreamHandler pushes task status over a WebSocket
type StreamHandler struct {
	tasks *TaskHandler
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(tasks *TaskHandler) *StreamHandler {
	return &StreamHandler{tasks: tasks}
}

// Upgrade rejects plain HTTP requests and unknown tasks before the handshake
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, ok := h.tasks.lookup(c.UserContext(), c.Params("id")); !ok {
		return taskNotFound(c)
	}
	return c.Next()
}

// Handle sends the task record each poll interval until it is terminal
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id := c.Params("id")
	log := h.tasks.logger.With().Str("task_id", id).Logger()
	log.Debug().Msg("status socket opened")

	err := h.tasks.watch(id, func(task types.Task) error {
		data, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return c.WriteMessage(websocket.TextMessage, data)
	})
	switch {
	case errors.Is(err, errTaskGone):
		c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Task not found","code":"ERR_TASK_NOT_FOUND"}`))
	case err != nil:
		log.Debug().Err(err).Msg("status socket closed")
		return
	}

	c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
