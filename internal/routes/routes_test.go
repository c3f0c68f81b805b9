package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/intime-labs/intime/internal/config"
	"github.com/intime-labs/intime/internal/ledger"
	"github.com/intime-labs/intime/internal/logging"
	"github.com/intime-labs/intime/internal/notification"
)

func testConfig() config.Config {
	return config.Config{
		AppName:         "InTime",
		Env:             "test",
		JWTSecret:       "access",
		RefreshSecret:   "refresh",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		IdempotencyTTL:  time.Minute,
		DecayRate:       1,
		MintPolicy:      "restorative",
		AdminAccount:    "treasury",
	}
}

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func (c *client) do(method, path, body string) (int, map[string]any) {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (c *client) signup(account string) *client {
	c.t.Helper()
	status, _ := c.do(fiber.MethodPost, "/api/v1/identity/register", `{"account":"`+account+`","pin":"1234","device_id":"dev"}`)
	require.Equal(c.t, http.StatusCreated, status)
	status, body := c.do(fiber.MethodPost, "/api/v1/auth/login", `{"account":"`+account+`","pin":"1234","device_id":"dev"}`)
	require.Equal(c.t, http.StatusOK, status)
	return &client{t: c.t, app: c.app, token: body["access_token"].(string)}
}

func TestLedgerOverHTTP(t *testing.T) {
	app := fiber.New()
	clock := ledger.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, Setup(app, Deps{Cfg: testConfig(), Logger: logging.Discard(), Clock: clock}))

	anon := &client{t: t, app: app}
	treasury := anon.signup("treasury")
	alice := anon.signup("alice")
	bob := anon.signup("bob")

	status, body := alice.do(fiber.MethodGet, "/api/v1/me", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "alice", body["account"])

	status, _ = alice.do(fiber.MethodPost, "/api/v1/ledger/mint", `{"to":"alice","amount":1000}`)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = treasury.do(fiber.MethodPost, "/api/v1/ledger/mint", `{"to":"alice","amount":100000}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = treasury.do(fiber.MethodPost, "/api/v1/ledger/mint", `{"to":"bob","amount":10000}`)
	require.Equal(t, http.StatusOK, status)

	clock.Advance(5 * time.Second)

	status, body = alice.do(fiber.MethodPost, "/api/v1/ledger/transfer", `{"to":"bob","amount":20000}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(75_000), body["balance"])

	status, body = anon.do(fiber.MethodGet, "/api/v1/ledger/accounts/bob", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(25_000), body["balance"])

	status, body = anon.do(fiber.MethodGet, "/api/v1/ledger/supply", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "100000", body["total_supply"])

	// role administration
	status, _ = bob.do(fiber.MethodPost, "/api/v1/roles/grant", `{"role":"burner","account":"bob"}`)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = treasury.do(fiber.MethodPost, "/api/v1/roles/grant", `{"role":"burner","account":"bob"}`)
	require.Equal(t, http.StatusOK, status)
	status, _ = anon.do(fiber.MethodGet, "/api/v1/ping", "")
	require.Equal(t, http.StatusOK, status)
	status, body = bob.do(fiber.MethodGet, "/api/v1/roles/burner/bob", "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, true, body["has_role"])

	status, body = bob.do(fiber.MethodPost, "/api/v1/ledger/burn-from", `{"from":"alice","amount":5000}`)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, float64(70_000), body["balance"])

	status, _ = anon.do(fiber.MethodPost, "/api/v1/ledger/burn", `{"amount":1}`)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthReportsDisabledServices(t *testing.T) {
	app := fiber.New()
	require.NoError(t, Setup(app, Deps{Cfg: testConfig(), Logger: logging.Discard()}))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupRequiresBackingServicesOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	require.Error(t, Setup(fiber.New(), Deps{Cfg: cfg}))
}

func TestLedgerEventsArePublishedToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	ctx := context.Background()
	sub := cache.Subscribe(ctx, notification.DefaultChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	app := fiber.New()
	require.NoError(t, Setup(app, Deps{Cfg: testConfig(), Cache: cache, Logger: logging.Discard()}))

	anon := &client{t: t, app: app}
	treasury := anon.signup("treasury")
	status, _ := treasury.do(fiber.MethodPost, "/api/v1/ledger/mint", `{"to":"carol","amount":42}`)
	require.Equal(t, http.StatusOK, status)

	select {
	case msg := <-sub.Channel():
		var ev notification.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		require.Equal(t, notification.KindMint, ev.Kind)
		require.Equal(t, "carol", ev.To)
		require.Equal(t, int64(42), ev.Amount)
	case <-time.After(2 * time.Second):
		t.Fatal("no ledger event published")
	}
}
