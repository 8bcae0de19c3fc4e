package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Version reported by the health endpoint
const Version = "1.0.0"

// LogSource returns recent log lines
type LogSource interface {
	GetLogs() []string
}

// RunningCounter reports how many tasks are processing
type RunningCounter interface {
	Running() int
}

// Routes bundles everything the HTTP surface needs
type Routes struct {
	Tasks   *TaskHandler
	Upload  *UploadHandler
	Logs    LogSource
	Running RunningCounter
}

// Register mounts the API on app
func (r *Routes) Register(app *fiber.App) {
	app.Get("/health", r.health)
	app.Get("/logs", r.logs)

	app.Post("/process_video", r.Tasks.ProcessVideo)
	app.Get("/task_status/:id", r.Tasks.TaskStatus)

	if r.Upload != nil {
		app.Post("/upload", r.Upload.Handle)
	}
	app.Get("/tasks", r.Tasks.ListTasks)
	app.Get("/tasks/:id", r.Tasks.GetTask)
	app.Get("/tasks/:id/timeline", r.Tasks.Timeline)

	stream := NewStreamHandler(r.Tasks)
	app.Get("/ws/tasks/:id", stream.Upgrade, websocket.New(stream.Handle))
}

func (r *Routes) health(c *fiber.Ctx) error {
	running := 0
	if r.Running != nil {
		running = r.Running.Running()
	}
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"version":       Version,
		"running_tasks": running,
	})
}

func (r *Routes) logs(c *fiber.Ctx) error {
	lines := []string{}
	if r.Logs != nil {
		lines = r.Logs.GetLogs()
	}
	return c.JSON(fiber.Map{"logs": lines})
}
