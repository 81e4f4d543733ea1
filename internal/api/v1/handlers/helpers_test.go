package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"todo-api/internal/config"
	"todo-api/internal/middleware"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/avatar"
	"todo-api/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type fakeAvatars struct {
	mu        sync.Mutex
	uploaded  []string
	destroyed []string
}

func (h *fakeAvatars) Upload(_ context.Context, up avatar.Upload) (avatar.Object, error) {
	if _, err := io.ReadAll(up.Body); err != nil {
		return avatar.Object{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := fmt.Sprintf("%s/avatar-%d%s", up.Folder, len(h.uploaded)+1, strings.ToLower(up.Ext))
	h.uploaded = append(h.uploaded, key)
	return avatar.Object{Key: key, URL: "https://cdn.test/" + key}, nil
}

func (h *fakeAvatars) Destroy(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = append(h.destroyed, key)
	return nil
}

func (h *fakeAvatars) snapshot() (uploaded, destroyed []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.uploaded...), append([]string(nil), h.destroyed...)
}

// flakyRepo wraps a repository and injects failures.
type flakyRepo struct {
	repository.UserRepository
	mu             sync.Mutex
	createErr      error
	updateErr      error
	conflicts      int
	emailLookups   int
	updateAttempts int
}

func (r *flakyRepo) Create(ctx context.Context, u *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.UserRepository.Create(ctx, u)
}

func (r *flakyRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	r.emailLookups++
	r.mu.Unlock()
	return r.UserRepository.FindByEmail(ctx, email)
}

func (r *flakyRepo) Update(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	r.updateAttempts++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return repository.ErrVersionConflict
	}
	err := r.updateErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.UserRepository.Update(ctx, u)
}

type testEnv struct {
	app     *fiber.App
	repo    *flakyRepo
	mailer  *fakeMailer
	avatars *fakeAvatars
	now     time.Time
}

// newTestEnv wires handlers to in-memory fakes. The clock is frozen at
// env.now until advance is called.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.UseNop()

	env := &testEnv{
		repo:    &flakyRepo{UserRepository: repository.NewMemoryUserRepository()},
		mailer:  &fakeMailer{},
		avatars: &fakeAvatars{},
		now:     time.Now(),
	}

	prevNow := config.Now
	t.Cleanup(func() {
		config.Now = prevNow
		config.Hub = nil
		config.Profiles = repository.NopProfileCache{}
		config.RequireVerifiedLogin = false
	})

	config.Users = env.repo
	config.Profiles = repository.NopProfileCache{}
	config.Mailer = env.mailer
	config.Avatars = env.avatars
	config.Hub = nil
	config.SecretKey = []byte("handlers-test-secret")
	config.CookieExpire = time.Hour
	config.OTPExpire = 5 * time.Minute
	config.ResetOTPExpire = 10 * time.Minute
	config.RequireVerifiedLogin = false
	config.AvatarFolder = "todoApp"
	config.Now = func() time.Time { return env.now }

	app := fiber.New()
	app.Use(middleware.ErrorHandler())
	app.Post("/register", Register)
	app.Post("/login", Login)
	app.Post("/verify", middleware.UseToken, Verify)
	app.Get("/logout", middleware.UseToken, Logout)
	app.Get("/me", middleware.UseToken, GetMyProfile)
	app.Put("/updateprofile", middleware.UseToken, UpdateProfile)
	app.Put("/updatepassword", middleware.UseToken, UpdatePassword)
	app.Post("/forgotpassword", ForgotPassword)
	app.Put("/resetpassword", ResetPassword)
	app.Post("/newTask", middleware.UseToken, AddTask)
	app.Delete("/task/:taskId", middleware.UseToken, RemoveTask)
	app.Put("/task/:taskId", middleware.UseToken, UpdateTask)
	env.app = app
	return env
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }

type upload struct {
	field, filename, contentType string
	data                         []byte
}

func pngUpload() *upload {
	return &upload{field: "avatar", filename: "me.png", contentType: "image/png", data: []byte("\x89PNG fake image")}
}

func multipartBody(t *testing.T, fields map[string]string, file *upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string, session *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != nil {
		req.AddCookie(session)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload interface{}, session *http.Cookie) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return e.do(t, method, path, bytes.NewReader(raw), fiber.MIMEApplicationJSON, session)
}

func (e *testEnv) register(t *testing.T, name, email, password string) (*http.Cookie, primitive.ObjectID) {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"name": name, "email": email, "password": password}, pngUpload())
	resp := e.do(t, "POST", "/register", body, ct, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	result := decode(t, resp)
	user := result["user"].(map[string]interface{})
	id, err := primitive.ObjectIDFromHex(user["_id"].(string))
	require.NoError(t, err)
	return cookie, id
}

func (e *testEnv) stored(t *testing.T, id primitive.ObjectID) *models.User {
	t.Helper()
	u, err := e.repo.UserRepository.FindByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatalf("expected %q cookie in response", middleware.CookieName)
	return nil
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

var errStoreDown = errors.New("store unavailable")

// observe replaces one of the package loggers with an in-memory logger
// enabled at level, matching the level the logger runs at in production.
func observe(t *testing.T, dst **zap.Logger, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	prev := *dst
	*dst = zap.New(core)
	t.Cleanup(func() { *dst = prev })
	return logs
}
