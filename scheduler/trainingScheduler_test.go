package scheduler

import (
	"testing"
	"time"

	"liftworks/config"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/services/certificate"
	"liftworks/services/checkout"
	"liftworks/services/exam"
	"liftworks/services/seats"
	"liftworks/testutil"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newJobs(t *testing.T) (*Jobs, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := config.AppConfig
	return &Jobs{
		DB:           db,
		Exams:        exam.NewService(db, exam.SettingsFromConfig(cfg), nil, nil),
		Seats:        seats.NewService(db, cfg.InviteTTL),
		Orders:       checkout.NewService(db, cfg, nil),
		Certificates: certificate.NewService(cfg),
	}, db
}

func TestRegisterSchedulesEveryJob(t *testing.T) {
	jobs, _ := newJobs(t)
	c := cron.New()
	require.NoError(t, jobs.Register(c))
	assert.Len(t, c.Entries(), 5)
}

func TestJobsApplyHousekeeping(t *testing.T) {
	jobs, db := newJobs(t)
	user := testutil.CreateUser(t, db, "operator@example.com", models.RoleUser)
	course, _ := testutil.CreateCourse(t, db, "forklift", 1, 1)
	enrollment := testutil.Enroll(t, db, user.ID, course.ID)
	org := testutil.CreateOrg(t, db, "Acme", user)
	past := time.Now().Add(-48 * time.Hour)

	session := training.ExamSession{
		UserID: user.ID, CourseID: course.ID, EnrollmentID: enrollment.ID, PaperID: 1,
		Status: training.SessionInProgress, StartedAt: past, ExpiresAt: past.Add(45 * time.Minute),
	}
	require.NoError(t, db.Create(&session).Error)

	invite := enterprise.Invitation{
		OrgID: org.ID, CourseID: course.ID, Email: "new@example.com", Token: "tok-1",
		Status: enterprise.InvitePending, ExpiresAt: past,
	}
	require.NoError(t, db.Create(&invite).Error)

	order := catalog.Order{Number: "LWO-OLD", UserID: user.ID, Status: catalog.OrderPending}
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Model(&order).Update("created_at", past).Error)

	cert := training.Certificate{
		UserID: user.ID, CourseID: course.ID, CertificateNumber: "LW-2026-AAAA0000",
		IssuedAt: past, ExpiresAt: time.Now().AddDate(0, 0, 10),
	}
	require.NoError(t, db.Create(&cert).Error)

	stale := models.OneTimeCode{UserID: user.ID, Purpose: models.OTPVerifyEmail, CodeHash: "x", ExpiresAt: past}
	live := models.OneTimeCode{UserID: user.ID, Purpose: models.OTPResetPassword, CodeHash: "y", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&live).Error)

	jobs.PurgeOneTimeCodes()
	jobs.ExpireExamSessions()
	jobs.ExpireInvitations()
	jobs.CancelStaleOrders()
	jobs.SendCertificateReminders()
	jobs.SendCertificateReminders()

	require.NoError(t, db.First(&session, session.ID).Error)
	assert.Equal(t, training.SessionExpired, session.Status)
	require.NoError(t, db.First(&invite, invite.ID).Error)
	assert.Equal(t, enterprise.InviteExpired, invite.Status)
	require.NoError(t, db.First(&order, order.ID).Error)
	assert.Equal(t, catalog.OrderCancelled, order.Status)
	require.NoError(t, db.First(&cert, cert.ID).Error)
	assert.True(t, cert.ReminderSent)

	var codes []models.OneTimeCode
	require.NoError(t, db.Unscoped().Find(&codes).Error)
	require.Len(t, codes, 1)
	assert.Equal(t, live.ID, codes[0].ID)
}
