package handlers

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"

	"todo-api/internal/apperror"
	"todo-api/internal/config"
	"todo-api/internal/models"
	"todo-api/pkg/avatar"
	"todo-api/pkg/logger"

	"go.uber.org/zap"
)

const maxAvatarSize = 5 << 20

var allowedAvatarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// validateAvatar memeriksa ukuran, ekstensi dan tipe konten avatar.
func validateAvatar(file *multipart.FileHeader) error {
	// Validasi ukuran file maksimal 5MB
	if file.Size > maxAvatarSize {
		return apperror.New(apperror.Validation, "File size exceeds the limit of 5MB")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAvatarExts[ext] {
		return apperror.New(apperror.Validation, "File type not allowed")
	}

	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		return apperror.New(apperror.Validation, "File must be an image")
	}
	return nil
}

// uploadAvatar validates file and streams it to the avatar host.
func uploadAvatar(ctx context.Context, file *multipart.FileHeader, owner string) (*models.Avatar, error) {
	if err := validateAvatar(file); err != nil {
		return nil, err
	}

	f, err := file.Open()
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, err)
	}
	defer f.Close()

	obj, err := config.Avatars.Upload(ctx, avatar.Upload{
		Folder:      config.AvatarFolder,
		Owner:       owner,
		Ext:         filepath.Ext(file.Filename),
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Body:        f,
	})
	if err != nil {
		logger.ErrorLogger.Error("Error uploading avatar", zap.String("owner", owner), zap.Error(err))
		return nil, apperror.Wrap(apperror.Internal, err)
	}
	return &models.Avatar{StorageKey: obj.Key, URL: obj.URL}, nil
}

// discardAvatar removes an uploaded object that is no longer referenced.
// Failures are logged only; the request outcome does not depend on them.
func discardAvatar(ctx context.Context, a *models.Avatar) {
	if a == nil || a.StorageKey == "" {
		return
	}
	if err := config.Avatars.Destroy(ctx, a.StorageKey); err != nil {
		logger.ErrorLogger.Error("Error destroying avatar", zap.String("key", a.StorageKey), zap.Error(err))
	}
}
