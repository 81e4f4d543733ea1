package middleware

import (
	"errors"

	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/pkg/logger"
	"todo-api/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the session token.
const CookieName = "token"

// UseToken memastikan request membawa session token yang valid dan
// menyimpan user ID di c.Locals("userID"). User tidak dimuat dari database.
func UseToken(c *fiber.Ctx) error {
	raw := c.Cookies(CookieName)
	if raw == "" {
		return reject(c, apperror.Unauthenticated, "Login First")
	}

	userID, err := token.Parse(raw, config.SecretKey)
	if err != nil {
		msg := "Invalid token"
		if errors.Is(err, token.ErrTokenExpired) {
			msg = "Token expired"
		}
		logger.SecurityLogger.Warn("Rejected session", zap.String("ip", c.IP()), zap.Error(err))
		return reject(c, apperror.InvalidSession, msg)
	}

	c.Locals("userID", userID)
	return c.Next()
}

func reject(c *fiber.Ctx, kind apperror.Kind, msg string) error {
	return c.Status(kind.Status()).JSON(fiber.Map{
		"message": msg,
		"success": false,
		"error":   kind,
		"status":  kind.Status(),
	})
}
