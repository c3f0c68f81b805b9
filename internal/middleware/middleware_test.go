package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/intime-labs/intime/internal/auth"
	"github.com/intime-labs/intime/internal/config"
	"github.com/intime-labs/intime/internal/identity"
)

func TestJWTAuthBindsCallerAccount(t *testing.T) {
	repo := identity.NewMemoryRepository()
	user, err := identity.NewService(repo).Register(context.Background(), identity.Credentials{Account: "holder1", PIN: "1234", DeviceID: "d"})
	require.NoError(t, err)
	tokens := auth.NewService(config.Config{JWTSecret: "s", RefreshSecret: "r", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}, repo)
	pair, err := tokens.Login(user)
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/whoami", JWTAuth(tokens), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalAccount).(string))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := new(bytes.Buffer)
	_, _ = body.ReadFrom(resp.Body)
	require.Equal(t, "holder1", body.String())
}

func TestLoginRateLimitPerAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	attempt := func(account string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(`{"account":"`+account+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, fiber.StatusOK, attempt("holder1"))
	require.Equal(t, fiber.StatusOK, attempt("holder1"))
	require.Equal(t, fiber.StatusTooManyRequests, attempt("holder1"))
	require.Equal(t, fiber.StatusOK, attempt("holder2"))

	mr.FastForward(2 * time.Minute)
	require.Equal(t, fiber.StatusOK, attempt("holder1"))
}

func TestAuditLogsRequestAndAccount(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger))
	app.Get("/ok", func(c *fiber.Ctx) error {
		c.Locals(LocalAccount, "holder1")
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get(requestIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "request completed", line["msg"])
	require.Equal(t, "holder1", line["account"])
	require.Equal(t, float64(fiber.StatusNoContent), line["status"])
	require.Equal(t, resp.Header.Get(requestIDHeader), line["request_id"])
}

func TestRequestIDReusesCallerValue(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(c.Locals(requestIDHeader).(string)) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "trace-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, "trace-42", resp.Header.Get(requestIDHeader))

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Len(t, resp.Header.Get(requestIDHeader), 36)
}
