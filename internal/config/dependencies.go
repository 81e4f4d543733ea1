package config

import (
	"time"

	"todo-api/internal/repository"
	"todo-api/internal/websocket"
	"todo-api/pkg/avatar"
	"todo-api/pkg/mailer"

	"github.com/go-playground/validator/v10"
)

var (
	// Global dependency yang akan digunakan di seluruh aplikasi
	Users    repository.UserRepository
	Profiles repository.ProfileCache = repository.NopProfileCache{}
	Mailer   mailer.Mailer
	Avatars  avatar.Host
	Hub      *websocket.Hub
	Validate = validator.New()

	SecretKey    []byte
	CookieExpire = 15 * 24 * time.Hour
	CookieSecure bool

	OTPExpire            = 5 * time.Minute
	ResetOTPExpire       = 10 * time.Minute
	RequireVerifiedLogin bool
	AvatarFolder         = "todoApp"

	// Now is swapped by tests that need to move the clock.
	Now = time.Now
)
