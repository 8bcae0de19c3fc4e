package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codebuildervaibhav/video-pipeline/internal/media"
	"github.com/codebuildervaibhav/video-pipeline/internal/timeline"
	"github.com/codebuildervaibhav/video-pipeline/internal/types"
)

// Submitter starts background processing and returns the task id
type Submitter interface {
	Submit(videoURL string, recipe types.Recipe) string
}

// TaskReader reads live task records
type TaskReader interface {
	Get(id string) (types.Task, bool)
	List() []types.Task
}

// HistoryReader reads persisted task records
type HistoryReader interface {
	GetTask(ctx context.Context, id string) (types.Task, error)
	ListTasks(ctx context.Context, limit int) ([]types.Task, error)
}

var errTaskGone = errors.New("task no longer available")

// TaskHandler serves job submission and task status
type TaskHandler struct {
	submitter    Submitter
	tasks        TaskReader
	history      HistoryReader
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewTaskHandler creates a task handler. history may be nil.
func NewTaskHandler(submitter Submitter, tasks TaskReader, history HistoryReader, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		submitter:    submitter,
		tasks:        tasks,
		history:      history,
		pollInterval: time.Second,
		logger:       logger.With().Str("component", "handlers").Logger(),
	}
}

type processRequest struct {
	VideoURL string          `json:"video_url"`
	Recipe   json.RawMessage `json:"recipe"`
}

// ParseRecipe decodes a submitted recipe. Absent or null means the default
// recipe; otherwise every missing gate is off.
func ParseRecipe(raw []byte) (types.Recipe, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return types.DefaultRecipe(), nil
	}
	var recipe types.Recipe
	if err := json.Unmarshal(raw, &recipe); err != nil {
		return types.Recipe{}, err
	}
	return recipe, nil
}

// ProcessVideo handles POST /process_video
func (h *TaskHandler) ProcessVideo(c *fiber.Ctx) error {
	var req processRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body must be JSON",
			"code":  "ERR_INVALID_JSON",
		})
	}

	req.VideoURL = strings.TrimSpace(req.VideoURL)
	if req.VideoURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "video_url is required in the JSON body",
			"code":  "ERR_MISSING_VIDEO_URL",
		})
	}

	recipe, err := ParseRecipe(req.Recipe)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid recipe: %v", err),
			"code":  "ERR_INVALID_RECIPE",
		})
	}

	taskID := h.submitter.Submit(req.VideoURL, recipe)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": taskID,
		"message": "Video processing started.",
	})
}

// lookup finds a task in the registry, then in the history
func (h *TaskHandler) lookup(ctx context.Context, id string) (types.Task, bool) {
	if task, ok := h.tasks.Get(id); ok {
		return task, true
	}
	if h.history == nil {
		return types.Task{}, false
	}
	task, err := h.history.GetTask(ctx, id)
	if err != nil {
		return types.Task{}, false
	}
	return task, true
}

func taskNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Task not found",
		"code":  "ERR_TASK_NOT_FOUND",
	})
}

// watch emits the task record every poll interval until it is terminal
func (h *TaskHandler) watch(id string, emit func(types.Task) error) error {
	for {
		task, ok := h.lookup(context.Background(), id)
		if !ok {
			return errTaskGone
		}
		if err := emit(task); err != nil {
			return err
		}
		if types.IsTerminal(task.Status) {
			return nil
		}
		time.Sleep(h.pollInterval)
	}
}

// TaskStatus handles GET /task_status/:id as a server-sent event stream
func (h *TaskHandler) TaskStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.lookup(c.UserContext(), id); !ok {
		return taskNotFound(c)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		err := h.watch(id, func(task types.Task) error {
			data, err := json.Marshal(task)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil && !errors.Is(err, errTaskGone) {
			h.logger.Debug().Err(err).Str("task_id", id).Msg("status stream closed")
		}
	})
	return nil
}

// GetTask handles GET /tasks/:id
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, ok := h.lookup(c.UserContext(), c.Params("id"))
	if !ok {
		return taskNotFound(c)
	}
	return c.JSON(task)
}

// ListTasks handles GET /tasks: live tasks plus history, newest first
func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 {
		limit = 50
	}

	seen := make(map[string]bool)
	tasks := h.tasks.List()
	for _, t := range tasks {
		seen[t.ID] = true
	}
	if h.history != nil {
		past, err := h.history.ListTasks(c.UserContext(), limit)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to read task history")
		}
		for _, t := range past {
			if !seen[t.ID] {
				tasks = append(tasks, t)
			}
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// Timeline handles GET /tasks/:id/timeline, rendering the xmeml timeline
// of a completed task from its keep set
func (h *TaskHandler) Timeline(c *fiber.Ctx) error {
	id := c.Params("id")
	task, ok := h.lookup(c.UserContext(), id)
	if !ok {
		return taskNotFound(c)
	}
	if task.Status != types.StatusCompleted || task.Result == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Task has not completed",
			"code":  "ERR_TASK_NOT_COMPLETED",
		})
	}

	keep := task.Result.KeepSegments
	if len(keep) == 0 && !task.Result.EverythingRemoved && task.Result.Metadata != nil && task.Result.Metadata.Duration > 0 {
		keep = []types.TimeSpan{{Start: 0, End: task.Result.Metadata.Duration}}
	}
	if len(keep) == 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Task has no kept segments to place on a timeline",
			"code":  "ERR_NO_TIMELINE",
		})
	}

	data, err := timeline.Export(task.Result.Metadata, keep, sourceFilename(task.VideoURL))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_TIMELINE_FAILED",
		})
	}

	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.xml"`, id))
	return c.Send(data)
}

// sourceFilename names the timeline's media file after the source
func sourceFilename(locator string) string {
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if media.IsSupportedContainer(name) {
		return name
	}
	return "input.mp4"
}
