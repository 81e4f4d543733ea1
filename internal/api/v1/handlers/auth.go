package handlers

import (
	"errors"
	"time"

	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/crypto"
	"todo-api/pkg/logger"
	"todo-api/pkg/mailer"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Auth handlers
func Register(c *fiber.Ctx) error {
	// struct RegisterRequest menerima inputan dari form multipart
	type RegisterRequest struct {
		Name     string `json:"name" form:"name" validate:"required"`
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
	}

	var req RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	req.Email = normalizeEmail(req.Email)
	if err := validate(req, "Please enter all fields"); err != nil {
		logger.AuditLogger.Warn("Validation error during register", zap.Error(err))
		return fail(c, err)
	}

	ctx := c.UserContext()

	// email harus unik, user lama dijawab 200 dengan success false
	_, err := config.Users.FindByEmail(ctx, req.Email)
	if err == nil {
		logger.SecurityLogger.Warn("Duplicate registration", zap.String("email", req.Email))
		return fail(c, apperror.New(apperror.DuplicateEmail, "User Already exists"))
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return fail(c, apperror.New(apperror.MissingField, "Please upload an avatar"))
	}
	if err := validateAvatar(file); err != nil {
		return fail(c, err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return fail(c, err)
	}
	otp, err := crypto.GenerateOTP()
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	pic, err := uploadAvatar(ctx, file, req.Name)
	if err != nil {
		return fail(c, err)
	}

	now := config.Now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Avatar:       pic,
		Tasks:        []models.Task{},
		CreatedAt:    now.UTC(),
	}
	user.SetOTP(otp, now.Add(config.OTPExpire))

	if err := config.Users.Create(ctx, user); err != nil {
		// user tidak jadi dibuat, hapus avatar yang sudah terunggah
		discardAvatar(ctx, pic)
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return fail(c, apperror.New(apperror.DuplicateEmail, "User Already exists"))
		}
		logger.ErrorLogger.Error("Error creating user", zap.Error(err))
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	body, err := mailer.VerificationBody(mailer.OTPParams{Name: user.Name, OTP: otp, Expiry: *user.OTPExpiry})
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}
	if err := config.Mailer.Send(ctx, user.Email, mailer.VerificationSubject, body); err != nil {
		logger.ErrorLogger.Error("Error sending verification email", zap.String("email", user.Email), zap.Error(err))
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	logger.AuditLogger.Info("User registered successfully", zap.String("user_id", user.ID.Hex()))
	return sendToken(c, user, fiber.StatusCreated,
		"We have sent a One-Time Password (OTP) to your registered email address. Please verify your account.")
}

// fungsi login, session dikirim lewat cookie
func Login(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email" form:"email" validate:"required"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	// field kosong ditolak sebelum menyentuh database
	if err := validate(req, "Please enter both email and password"); err != nil {
		return fail(c, err)
	}

	user, err := config.Users.FindByEmail(c.UserContext(), normalizeEmail(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		logger.SecurityLogger.Warn("Login with unknown email", zap.String("ip", c.IP()))
		return fail(c, apperror.New(apperror.InvalidCredentials, "Invalid Email or Password"))
	}
	if err != nil {
		return fail(c, apperror.Wrap(apperror.Internal, err))
	}

	if !crypto.ComparePassword(user.PasswordHash, req.Password) {
		logger.SecurityLogger.Warn("Login with wrong password",
			zap.String("user_id", user.ID.Hex()), zap.String("ip", c.IP()))
		return fail(c, apperror.New(apperror.InvalidCredentials, "Invalid Email or Password"))
	}

	if config.RequireVerifiedLogin && !user.Verified {
		return fail(c, apperror.New(apperror.InvalidCredentials, "Please verify your account first"))
	}

	logger.AuditLogger.Info("User logged in", zap.String("user_id", user.ID.Hex()))
	return sendToken(c, user, fiber.StatusOK, "Login Successful")
}

// Verify menandai akun sebagai terverifikasi bila OTP cocok dan belum kedaluwarsa.
func Verify(c *fiber.Ctx) error {
	var req struct {
		OTP otpInput `json:"otp"`
	}
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}
	if !req.OTP.Set {
		return fail(c, apperror.New(apperror.MissingField, "Please enter the OTP"))
	}

	id, err := currentUserID(c)
	if err != nil {
		return fail(c, err)
	}

	user, err := mutateUser(c.UserContext(), id, func(u *models.User) error {
		if !u.OTPValid(req.OTP.Value, config.Now()) {
			return apperror.New(apperror.InvalidOrExpiredOtp, "Invalid OTP or has been expired")
		}
		u.Verified = true
		u.ClearOTP()
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	logger.AuditLogger.Info("User verified", zap.String("user_id", user.ID.Hex()))
	return sendToken(c, user, fiber.StatusOK, "Account verified")
}

// Logout menimpa cookie session dengan cookie yang sudah kedaluwarsa.
func Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  config.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   config.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}
