package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"todo-api/internal/config"
	"todo-api/pkg/logger"
	"todo-api/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	logger.UseNop()
	config.SecretKey = []byte("middleware-secret")

	app := fiber.New()
	app.Use(ErrorHandler())
	app.Get("/private", UseToken, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": c.Locals("userID")})
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("kaboom")
	})
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestUseTokenMissingCookie(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Unauthenticated", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestUseTokenInvalid(t *testing.T) {
	app := newTestApp()
	req := httptest.NewRequest("GET", "/private", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "InvalidSession", decode(t, resp)["error"])
}

func TestUseTokenExpired(t *testing.T) {
	app := newTestApp()
	tok, err := token.Generate("user-1", config.SecretKey, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/private", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "InvalidSession", body["error"])
	assert.Equal(t, "Token expired", body["message"])
}

func TestUseTokenValid(t *testing.T) {
	app := newTestApp()
	tok, err := token.Generate("user-1", config.SecretKey, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/private", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "user-1", decode(t, resp)["userID"])
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	app := newTestApp()
	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Internal", body["error"])
	assert.Contains(t, body["message"], "kaboom")
}
