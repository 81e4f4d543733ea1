package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/crypto"
	"todo-api/pkg/logger"
	"todo-api/pkg/token"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxMutateAttempts bounds the reload-and-retry loop in mutateUser.
const maxMutateAttempts = 3

// errNoChange lets a mutation skip the write when nothing changed.
var errNoChange = errors.New("no change")

// fail menulis response error sesuai kind dari err.
// Error yang tidak dikenal dilaporkan sebagai 500 dengan pesan aslinya.
func fail(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	status := kind.Status()
	if kind == apperror.Internal {
		logger.ErrorLogger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": err.Error(),
		"success": false,
		"error":   kind,
		"status":  status,
	})
}

// sendToken membuat session token untuk user, menyimpannya di cookie
// http-only dan mengembalikan {success, message, user}.
func sendToken(c *fiber.Ctx, user *models.User, status int, message string) error {
	signed, err := token.Generate(user.ID.Hex(), config.SecretKey, config.CookieExpire)
	if err != nil {
		logger.ErrorLogger.Error("Error signing session token", zap.Error(err))
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    signed,
		Expires:  config.Now().Add(config.CookieExpire),
		HTTPOnly: true,
		Secure:   config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"user":    user,
	})
}

// currentUserID membaca user ID yang disimpan UseToken.
func currentUserID(c *fiber.Ctx) (primitive.ObjectID, error) {
	raw, _ := c.Locals("userID").(string)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperror.New(apperror.InvalidSession, "Invalid token")
	}
	return id, nil
}

// mutateUser loads the user, applies fn and writes the result back with a
// version check. On a concurrent write it reloads and reapplies fn.
func mutateUser(ctx context.Context, id primitive.ObjectID, fn func(*models.User) error) (*models.User, error) {
	for attempt := 0; attempt < maxMutateAttempts; attempt++ {
		user, err := loadUser(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(user); err != nil {
			if errors.Is(err, errNoChange) {
				return user, nil
			}
			return nil, err
		}

		err = config.Users.Update(ctx, user)
		if err == nil {
			refreshProfile(ctx, user)
			return user, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperror.Wrap(apperror.Internal, err)
		}
		logger.SystemLogger.Info("Retrying user update after version conflict",
			zap.String("user_id", id.Hex()), zap.Int("attempt", attempt+1))
	}
	return nil, apperror.New(apperror.Conflict, "User was modified concurrently, please retry")
}

func loadUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := config.Users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.New(apperror.NotFound, "User not found")
	}
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, err)
	}
	return user, nil
}

// refreshProfile writes the committed user through to the profile cache.
// If that fails the entry is dropped so GET /me falls back to the store.
func refreshProfile(ctx context.Context, user *models.User) {
	id := user.ID.Hex()
	err := config.Profiles.Set(ctx, user)
	if err == nil {
		return
	}
	logger.ErrorLogger.Error("Error caching profile", zap.String("user_id", id), zap.Error(err))
	if err := config.Profiles.Invalidate(ctx, id); err != nil {
		logger.ErrorLogger.Error("Error invalidating cached profile", zap.String("user_id", id), zap.Error(err))
	}
}

// parseBody membaca body request ke req. Body kosong dibiarkan agar
// validasi field yang hilang dilaporkan sebagai MissingField.
func parseBody(c *fiber.Ctx, req interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(req); err != nil {
		logger.SystemLogger.Warn("Bad request body", zap.String("path", c.Path()), zap.Error(err))
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperror.New(apperror.Validation, "Bad request")
	}
	return nil
}

// validate menjalankan validator. Tag required yang gagal menjadi
// MissingField dengan missingMsg, selebihnya Validation.
func validate(req interface{}, missingMsg string) error {
	err := config.Validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return apperror.New(apperror.MissingField, missingMsg)
			}
		}
		fe := fieldErrs[0]
		return apperror.New(apperror.Validation, "Invalid value for field "+fe.Field()+" ("+fe.Tag()+")")
	}
	return apperror.Wrap(apperror.Validation, err)
}

// hashPassword maps an overlong password to Validation and any other
// hashing failure to Internal.
func hashPassword(password string) (string, error) {
	hash, err := crypto.HashPassword(password)
	if errors.Is(err, crypto.ErrPasswordTooLong) {
		return "", apperror.New(apperror.Validation, "Password must be at most 72 bytes")
	}
	if err != nil {
		logger.ErrorLogger.Error("Error hashing password", zap.Error(err))
		return "", apperror.Wrap(apperror.Internal, err)
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// otpInput accepts an OTP sent as a JSON number or a numeric string.
type otpInput struct {
	Value int
	Set   bool
}

func (o *otpInput) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(data), `"`))
	if raw == "" || raw == "null" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return apperror.New(apperror.Validation, "OTP must be numeric")
	}
	o.Value = n
	o.Set = true
	return nil
}
