package enterpriseRoutes

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orgFixture struct {
	db     *gorm.DB
	app    *fiber.App
	owner  models.User
	org    enterprise.Organization
	course training.Course
}

func newOrgFixture(t *testing.T, seats int) *orgFixture {
	t.Helper()
	db := testutil.NewDB(t)
	app := fiber.New()
	SetupEnterpriseRoutes(app)
	SetupAdminEnterpriseRoutes(app)

	owner := testutil.CreateUser(t, db, "owner@acme-logistics.com", models.RoleUser)
	org := testutil.CreateOrg(t, db, "Acme Logistics", owner)
	course, _ := testutil.CreateCourse(t, db, "forklift", 1, 2)
	testutil.CreateSeats(t, db, org.ID, course.ID, seats, 0)
	return &orgFixture{db: db, app: app, owner: owner, org: org, course: course}
}

func (f *orgFixture) path(format string, args ...interface{}) string {
	return fmt.Sprintf("/enterprise/orgs/%d", f.org.ID) + fmt.Sprintf(format, args...)
}

func TestRedeemUnknownTokenIsNotFound(t *testing.T) {
	f := newOrgFixture(t, 1)
	learner := testutil.CreateUser(t, f.db, "ops@acme-logistics.com", models.RoleUser)

	status, body := testutil.Do(t, f.app, fiber.MethodPost, "/enterprise/redeem",
		map[string]string{"token": uuid.NewString()}, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.False(t, body.Get("status").Bool())

	status, _ = testutil.Do(t, f.app, fiber.MethodPost, "/enterprise/redeem",
		map[string]string{"token": "not-a-uuid"}, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestInviteAndRedeemConsumesSeat(t *testing.T) {
	f := newOrgFixture(t, 1)
	learner := testutil.CreateUser(t, f.db, "ops@acme-logistics.com", models.RoleUser)

	status, body := testutil.Do(t, f.app, fiber.MethodPost, f.path("/invites"), map[string]interface{}{
		"email":     "OPS@acme-logistics.com",
		"course_id": f.course.ID,
		"role":      enterprise.RoleLearner,
	}, testutil.Token(t, f.owner))
	require.Equal(t, fiber.StatusCreated, status)
	assert.False(t, body.Get("data.token").Exists())

	var invite enterprise.Invitation
	require.NoError(t, f.db.First(&invite, body.Get("data.ID").Uint()).Error)

	stranger := testutil.CreateUser(t, f.db, "someone@else.com", models.RoleUser)
	status, _ = testutil.Do(t, f.app, fiber.MethodPost, "/enterprise/redeem",
		map[string]string{"token": invite.Token}, testutil.Token(t, stranger))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = testutil.Do(t, f.app, fiber.MethodPost, "/enterprise/redeem",
		map[string]string{"token": invite.Token}, testutil.Token(t, learner))
	require.Equal(t, fiber.StatusOK, status)
	assert.True(t, body.Get("data.seat_consumed").Bool())
	assert.Equal(t, enterprise.RoleLearner, body.Get("data.membership.role").String())

	var pool enterprise.OrgSeat
	require.NoError(t, f.db.Where("org_id = ? AND course_id = ?", f.org.ID, f.course.ID).First(&pool).Error)
	assert.Equal(t, 1, pool.UsedSeats)

	status, body = testutil.Do(t, f.app, fiber.MethodPost, "/enterprise/redeem",
		map[string]string{"token": invite.Token}, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.NotEmpty(t, body.Get("data.reason").String())

	status, _ = testutil.Do(t, f.app, fiber.MethodPost, f.path("/invites"), map[string]interface{}{
		"email":     "second@acme-logistics.com",
		"course_id": f.course.ID,
	}, testutil.Token(t, f.owner))
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestOrgRoleRules(t *testing.T) {
	f := newOrgFixture(t, 5)
	admin := testutil.CreateUser(t, f.db, "admin@acme-logistics.com", models.RoleUser)
	supervisor := testutil.CreateUser(t, f.db, "lead@acme-logistics.com", models.RoleUser)
	learner := testutil.CreateUser(t, f.db, "ops@acme-logistics.com", models.RoleUser)
	outsider := testutil.CreateUser(t, f.db, "someone@else.com", models.RoleUser)
	testutil.AddMember(t, f.db, f.org.ID, admin.ID, enterprise.RoleAdmin)
	testutil.AddMember(t, f.db, f.org.ID, supervisor.ID, enterprise.RoleSupervisor)
	testutil.AddMember(t, f.db, f.org.ID, learner.ID, enterprise.RoleLearner)

	status, _ := testutil.Do(t, f.app, fiber.MethodGet, f.path("/roster"), nil, testutil.Token(t, outsider))
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = testutil.Do(t, f.app, fiber.MethodGet, f.path("/roster"), nil, testutil.Token(t, learner))
	assert.Equal(t, fiber.StatusForbidden, status)
	status, body := testutil.Do(t, f.app, fiber.MethodGet, f.path("/roster"), nil, testutil.Token(t, supervisor))
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body.Get("data").Array(), 4)

	// Supervisors cannot invite or export.
	status, _ = testutil.Do(t, f.app, fiber.MethodGet, f.path("/roster/export"), nil, testutil.Token(t, supervisor))
	assert.Equal(t, fiber.StatusForbidden, status)

	role := func(userID uint, r string, as models.User) int {
		status, _ := testutil.Do(t, f.app, fiber.MethodPatch, f.path("/members/%d/role", userID),
			map[string]string{"role": r}, testutil.Token(t, as))
		return status
	}
	assert.Equal(t, fiber.StatusForbidden, role(learner.ID, enterprise.RoleAdmin, admin))
	assert.Equal(t, fiber.StatusOK, role(learner.ID, enterprise.RoleSupervisor, admin))
	assert.Equal(t, fiber.StatusConflict, role(f.owner.ID, enterprise.RoleLearner, admin))
	assert.Equal(t, fiber.StatusUnprocessableEntity, role(learner.ID, enterprise.RoleOwner, f.owner))
	assert.Equal(t, fiber.StatusOK, role(learner.ID, enterprise.RoleAdmin, f.owner))

	status, _ = testutil.Do(t, f.app, fiber.MethodDelete, f.path("/members/%d", learner.ID), nil, testutil.Token(t, admin))
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = testutil.Do(t, f.app, fiber.MethodDelete, f.path("/members/%d", supervisor.ID), nil, testutil.Token(t, admin))
	assert.Equal(t, fiber.StatusOK, status)

	var removed enterprise.OrgMember
	require.NoError(t, f.db.Where("org_id = ? AND user_id = ?", f.org.ID, supervisor.ID).First(&removed).Error)
	assert.Equal(t, enterprise.MemberRemoved, removed.Status)
}

func TestRosterExportIsCSV(t *testing.T) {
	f := newOrgFixture(t, 1)

	req := httptest.NewRequest(fiber.MethodGet, f.path("/roster/export"), nil)
	req.Header.Set(fiber.HeaderAuthorization, testutil.Token(t, f.owner))
	resp := testutil.Raw(t, f.app, req)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "attachment")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "owner@acme-logistics.com")
}

func TestAdminGrantSeats(t *testing.T) {
	f := newOrgFixture(t, 2)
	siteAdmin := testutil.CreateUser(t, f.db, "staff@liftworks.local", models.RoleAdmin)
	path := fmt.Sprintf("/admin/enterprise/orgs/%d/seats", f.org.ID)

	status, _ := testutil.Do(t, f.app, fiber.MethodPost, path,
		map[string]interface{}{"course_id": f.course.ID, "seats": 3}, testutil.Token(t, f.owner))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := testutil.Do(t, f.app, fiber.MethodPost, path,
		map[string]interface{}{"course_id": f.course.ID, "seats": 3}, testutil.Token(t, siteAdmin))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(5), body.Get("data.allocated_seats").Int())

	status, _ = testutil.Do(t, f.app, fiber.MethodPost, path,
		map[string]interface{}{"course_id": f.course.ID, "seats": 0}, testutil.Token(t, siteAdmin))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}
