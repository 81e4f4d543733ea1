package handlers

import (
	"errors"
	"strings"

	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/crypto"
	"todo-api/pkg/logger"
	"todo-api/pkg/mailer"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// User handlers

// GetMyProfile mengembalikan profil user yang sedang login.
// Profil dibaca dari cache terlebih dahulu jika tersedia.
func GetMyProfile(c *fiber.Ctx) error {
	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx := c.UserContext()

	user, err := config.Profiles.Get(ctx, id.Hex())
	if err != nil {
		logger.ErrorLogger.Error("Error reading cached profile", zap.String("user_id", id.Hex()), zap.Error(err))
		user = nil
	}
	if user == nil {
		user, err = loadUser(ctx, id)
		if err != nil {
			return fail(c, err)
		}
		if err := config.Profiles.SetIfAbsent(ctx, user); err != nil {
			logger.ErrorLogger.Error("Error caching profile", zap.String("user_id", id.Hex()), zap.Error(err))
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Welcome Back " + user.Name,
		"user":    user,
	})
}

// UpdateProfile mengubah nama dan/atau avatar. Avatar baru diunggah dulu,
// avatar lama baru dihapus setelah perubahan tersimpan.
func UpdateProfile(c *fiber.Ctx) error {
	type UpdateProfileRequest struct {
		Name string `json:"name" form:"name"`
	}

	var req UpdateProfileRequest
	if c.Get(fiber.HeaderContentType) != "" {
		if err := parseBody(c, &req); err != nil {
			return fail(c, err)
		}
	}
	name := strings.TrimSpace(req.Name)

	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx := c.UserContext()

	var fresh *models.Avatar
	if file, err := c.FormFile("avatar"); err == nil {
		fresh, err = uploadAvatar(ctx, file, name)
		if err != nil {
			return fail(c, err)
		}
	}

	var stale *models.Avatar
	_, err = mutateUser(ctx, id, func(u *models.User) error {
		if name != "" {
			u.Name = name
		}
		if fresh != nil {
			stale = u.Avatar
			u.Avatar = fresh
		}
		return nil
	})
	if err != nil {
		// perubahan gagal disimpan, avatar baru tidak terpakai
		discardAvatar(ctx, fresh)
		return fail(c, err)
	}
	discardAvatar(ctx, stale)

	logger.AuditLogger.Info("Profile updated", zap.String("user_id", id.Hex()), zap.Bool("avatar", fresh != nil))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Profile Updated Successfully",
	})
}

func UpdatePassword(c *fiber.Ctx) error {
	type UpdatePasswordRequest struct {
		OldPassword     string `json:"oldPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}

	var req UpdatePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	if err := validate(req, "Please enter all fields"); err != nil {
		return fail(c, err)
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}

	var newHash string
	_, err = mutateUser(c.UserContext(), id, func(u *models.User) error {
		if !crypto.ComparePassword(u.PasswordHash, req.OldPassword) {
			return apperror.New(apperror.InvalidOldPassword, "Invalid Old Password")
		}
		if req.NewPassword != req.ConfirmPassword {
			return apperror.New(apperror.PasswordMismatch, "New password and confirm password do not match")
		}
		if newHash == "" {
			hash, err := hashPassword(req.NewPassword)
			if err != nil {
				return err
			}
			newHash = hash
		}
		u.PasswordHash = newHash
		return nil
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.InvalidOldPassword {
			logger.SecurityLogger.Warn("Password update with wrong old password", zap.String("user_id", id.Hex()))
		}
		return fail(c, err)
	}

	logger.AuditLogger.Info("Password updated", zap.String("user_id", id.Hex()))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password Updated Successfully",
	})
}

// ForgotPassword mengirim OTP reset ke email user dan menerbitkan session.
func ForgotPassword(c *fiber.Ctx) error {
	type ForgotPasswordRequest struct {
		Email string `json:"email" form:"email" validate:"required"`
	}

	var req ForgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	if err := validate(req, "Please enter your email"); err != nil {
		return fail(c, err)
	}
	ctx := c.UserContext()

	found, err := config.Users.FindByEmail(ctx, normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return fail(c, apperror.New(apperror.InvalidEmail, "Invalid Email"))
	}
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	otp, err := crypto.GenerateOTP()
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}
	expiry := config.Now().Add(config.ResetOTPExpire)

	user, err := mutateUser(ctx, found.ID, func(u *models.User) error {
		u.SetResetOTP(otp, expiry)
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	body, err := mailer.ResetBody(mailer.OTPParams{Name: user.Name, OTP: otp, Expiry: expiry})
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}
	if err := config.Mailer.Send(ctx, user.Email, mailer.ResetSubject, body); err != nil {
		logger.ErrorLogger.Error("Error sending reset email", zap.String("email", user.Email), zap.Error(err))
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	logger.SecurityLogger.Warn("Password reset requested", zap.String("user_id", user.ID.Hex()), zap.String("ip", c.IP()))
	return sendToken(c, user, fiber.StatusCreated, "OTP sent to "+user.Email)
}

// ResetPassword mengganti password user pemilik OTP reset yang masih berlaku.
func ResetPassword(c *fiber.Ctx) error {
	type ResetPasswordRequest struct {
		OTP         otpInput `json:"otp"`
		NewPassword string   `json:"newPassword" validate:"required,min=6,max=72"`
	}

	var req ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	if !req.OTP.Set {
		return fail(c, apperror.New(apperror.MissingField, "Please enter all fields"))
	}
	if err := validate(req, "Please enter all fields"); err != nil {
		return fail(c, err)
	}
	ctx := c.UserContext()

	invalid := apperror.New(apperror.InvalidOrExpiredOtp, "Otp Invalid or has been Expired")
	found, err := config.Users.FindByResetOTP(ctx, req.OTP.Value, config.Now())
	if errors.Is(err, repository.ErrNotFound) {
		logger.SecurityLogger.Warn("Password reset with invalid otp", zap.String("ip", c.IP()))
		return fail(c, invalid)
	}
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		return fail(c, err)
	}

	_, err = mutateUser(ctx, found.ID, func(u *models.User) error {
		// dicek ulang karena dokumen bisa berubah sejak pencarian
		if !u.ResetOTPValid(req.OTP.Value, config.Now()) {
			return invalid
		}
		u.ClearResetOTP()
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("Password reset", zap.String("user_id", found.ID.Hex()))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Password Changed Successfully",
	})
}
