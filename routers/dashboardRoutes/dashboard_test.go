package dashboardRoutes

import (
	"fmt"
	"testing"

	"liftworks/models"
	"liftworks/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRequiresPermission(t *testing.T) {
	db := testutil.NewDB(t)
	app := fiber.New()
	SetupDashboardRoutes(app)
	user := testutil.CreateUser(t, db, "ops@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)

	status, _ := testutil.Do(t, app, fiber.MethodGet, "/admin/dashboard/stats", nil, testutil.Token(t, user))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/admin/dashboard/stats", nil, testutil.Token(t, admin))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(2), body.Get("data.users").Int())
}

func TestAdminUserListAndBlock(t *testing.T) {
	db := testutil.NewDB(t)
	app := fiber.New()
	SetupDashboardRoutes(app)
	user := testutil.CreateUser(t, db, "ops@warehouse.example", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	auth := testutil.Token(t, admin)

	status, body := testutil.Do(t, app, fiber.MethodGet, "/admin/users?q=warehouse", nil, auth)
	require.Equal(t, fiber.StatusOK, status)
	users := body.Get("data.users").Array()
	require.Len(t, users, 1)
	assert.Equal(t, user.Email, users[0].Get("email").String())
	assert.False(t, users[0].Get("password").Exists())

	block := fmt.Sprintf("/admin/users/%d/block", user.ID)
	status, _ = testutil.Do(t, app, fiber.MethodPatch, block, map[string]interface{}{}, auth)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body = testutil.Do(t, app, fiber.MethodPatch, block, map[string]bool{"blocked": true}, auth)
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Get("data.is_blocked").Bool())

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.True(t, stored.IsBlocked)

	status, _ = testutil.Do(t, app, fiber.MethodPatch, fmt.Sprintf("/admin/users/%d/block", admin.ID), map[string]bool{"blocked": true}, auth)
	assert.Equal(t, fiber.StatusConflict, status)
}
