package v1

import (
	"todo-api/internal/api/v1/handlers"
	"todo-api/internal/config"
	"todo-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes memasang semua route di bawah /api/v1 dan juga di root
// agar path lama client tetap berfungsi.
func RegisterRoutes(app *fiber.App) {
	app.Get("/health", Health)

	mount(app.Group("/api/v1"))
	mount(app)
}

func mount(router fiber.Router) {
	// Auth
	router.Post("/register", handlers.Register)
	router.Post("/login", handlers.Login)
	router.Post("/verify", middleware.UseToken, handlers.Verify)
	router.Get("/logout", middleware.UseToken, handlers.Logout)

	// User
	router.Get("/me", middleware.UseToken, handlers.GetMyProfile)
	router.Put("/updateprofile", middleware.UseToken, handlers.UpdateProfile)
	router.Put("/updatepassword", middleware.UseToken, handlers.UpdatePassword)
	router.Post("/forgotpassword", handlers.ForgotPassword)
	router.Put("/resetpassword", handlers.ResetPassword)

	// Task
	router.Post("/newTask", middleware.UseToken, handlers.AddTask)
	router.Delete("/task/:taskId", middleware.UseToken, handlers.RemoveTask)
	router.Put("/task/:taskId", middleware.UseToken, handlers.UpdateTask)

	// WebSocket event task, hanya jika hub aktif
	if config.Hub != nil {
		router.Get("/ws", middleware.UseToken, handlers.RequireUpgrade, handlers.TaskEvents)
	}
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"message": "ok",
	})
}
