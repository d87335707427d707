package lookupRoutes

import (
	"testing"

	"liftworks/middleware"
	"liftworks/models/lookup"
	"liftworks/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newApp(perSec, burst int) *fiber.App {
	app := fiber.New()
	SetupLookupRoutes(app, middleware.NewRateLimiter(perSec, burst))
	return app
}

func TestDecodeStatuses(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp(100, 100)

	status, _ := testutil.Do(t, app, fiber.MethodGet, "/lookup/acme-lifts?serial=ABC12345", nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = testutil.Do(t, app, fiber.MethodGet, "/lookup/toyota?serial=a-b", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/lookup/toyota?serial=QQQ-000001", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "toyota", body.Get("data.brand").String())
	assert.Equal(t, "QQQ000001", body.Get("data.normalized").String())
	assert.Equal(t, gjson.Null, body.Get("data.model").Type)

	var logs []lookup.LookupLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Matched)
}

func TestMatchedLookupIsLogged(t *testing.T) {
	db := testutil.NewDB(t)
	app := newApp(100, 100)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/lookup/toyota?serial=8fgcu25-12345", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "8-Series IC Cushion", body.Get("data.model").String())

	var logs []lookup.LookupLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Matched)
	assert.Equal(t, "8-Series IC Cushion", logs[0].ModelName)
	assert.Equal(t, "8FGCU2512345", logs[0].Input)
}

func TestBrandsListed(t *testing.T) {
	testutil.NewDB(t)
	app := newApp(100, 100)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/lookup/brands", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.GreaterOrEqual(t, len(body.Get("data").Array()), 25)
	assert.Equal(t, "toyota", body.Get("data.0.slug").String())
}

func TestLookupIsRateLimited(t *testing.T) {
	testutil.NewDB(t)
	app := newApp(1, 2)

	for i := 0; i < 2; i++ {
		status, _ := testutil.Do(t, app, fiber.MethodGet, "/lookup/brands", nil, "")
		require.Equal(t, fiber.StatusOK, status)
	}
	status, _ := testutil.Do(t, app, fiber.MethodGet, "/lookup/brands", nil, "")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
}
