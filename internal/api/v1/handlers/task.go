package handlers

import (
	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/internal/websocket"
	"todo-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Task handlers

// AddTask menambahkan task baru di akhir daftar task milik user.
func AddTask(c *fiber.Ctx) error {
	type TaskRequest struct {
		Title       string `json:"title" form:"title" validate:"required"`
		Description string `json:"description" form:"description"`
	}

	var req TaskRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	if err := validate(req, "Please enter a title"); err != nil {
		return fail(c, err)
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var task models.Task
	_, err = mutateUser(c.UserContext(), id, func(u *models.User) error {
		task = u.AddTask(req.Title, req.Description, config.Now().UTC())
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task added", zap.String("user_id", id.Hex()), zap.String("task_id", task.ID.Hex()))
	config.Hub.Publish(id.Hex(), websocket.Event{Event: websocket.EventTaskAdded, TaskID: task.ID.Hex()})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "task added successfully",
	})
}

// RemoveTask menghapus task berdasarkan id. Id yang tidak ada bukan error.
func RemoveTask(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}

	taskID, err := primitive.ObjectIDFromHex(c.Params("taskId"))
	if err == nil {
		removed := false
		_, err = mutateUser(c.UserContext(), id, func(u *models.User) error {
			if removed = u.RemoveTask(taskID); !removed {
				return errNoChange
			}
			return nil
		})
		if err != nil {
			return fail(c, err)
		}
		if removed {
			logger.AuditLogger.Info("Task removed", zap.String("user_id", id.Hex()), zap.String("task_id", taskID.Hex()))
			config.Hub.Publish(id.Hex(), websocket.Event{Event: websocket.EventTaskRemoved, TaskID: taskID.Hex()})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "task removed successfully",
	})
}

// UpdateTask membalik status completed dari task.
func UpdateTask(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}

	notFound := apperror.New(apperror.NotFound, "Task not found")
	taskID, err := primitive.ObjectIDFromHex(c.Params("taskId"))
	if err != nil {
		return fail(c, notFound)
	}

	var completed bool
	_, err = mutateUser(c.UserContext(), id, func(u *models.User) error {
		task, ok := u.ToggleTask(taskID)
		if !ok {
			return notFound
		}
		completed = task.Completed
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Task toggled",
		zap.String("user_id", id.Hex()),
		zap.String("task_id", taskID.Hex()),
		zap.Bool("completed", completed),
	)
	config.Hub.Publish(id.Hex(), websocket.Event{Event: websocket.EventTaskToggled, TaskID: taskID.Hex()})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "task completed successfully",
	})
}
