// Package testutil provides database and fixture helpers shared by package tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"liftworks/config"
	"liftworks/database"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Password is the plain-text password of every fixture user.
const Password = "Password@123"

// NewDB opens a private in-memory database, installs it as the global handle and
// resets config.AppConfig to defaults rooted in a temp dir.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenSqlite(dsn)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.CertificateDir = t.TempDir()
	cfg.UploadDir = t.TempDir()
	config.AppConfig = cfg
	database.Database = database.DbInstance{Db: db}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts a user with a hashed password. The role's default
// permissions are seeded plus any extra ones.
func CreateUser(t *testing.T, db *gorm.DB, email, role string, extra ...string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Name:            "Test " + role,
		Email:           email,
		Mobile:          fmt.Sprintf("555%07d", time.Now().UnixNano()%10000000),
		Role:            role,
		Password:        string(hash),
		IsEmailVerified: true,
	}
	require.NoError(t, db.Create(&user).Error)

	for _, p := range append(models.DefaultPermissions(role), extra...) {
		require.NoError(t, db.Create(&models.Permission{UserID: user.ID, Role: role, Permission: p}).Error)
	}
	return user
}

// Token returns a signed bearer header value for user.
func Token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(user, middleware.ScopeSession)
	require.NoError(t, err)
	return "Bearer " + token
}

// CreateCourse inserts a published course with the given number of modules,
// each holding itemsPerModule exam-eligible quiz items whose answer is index 1.
func CreateCourse(t *testing.T, db *gorm.DB, slug string, modules, itemsPerModule int) (training.Course, []training.Module) {
	t.Helper()

	course := training.Course{
		Slug:        slug,
		Title:       "Forklift Operator Certification",
		PriceCents:  5995,
		Status:      training.CourseActive,
		IsPublished: true,
	}
	require.NoError(t, db.Create(&course).Error)

	choices, err := json.Marshal([]string{"Wrong", "Right", "Also wrong"})
	require.NoError(t, err)

	mods := make([]training.Module, 0, modules)
	for i := 0; i < modules; i++ {
		m := training.Module{
			CourseID:    course.ID,
			Slug:        fmt.Sprintf("%s-m%d", slug, i+1),
			Title:       fmt.Sprintf("Module %d", i+1),
			OrderIndex:  i + 1,
			PassPercent: 80,
		}
		require.NoError(t, db.Create(&m).Error)
		require.NoError(t, db.Create(&training.Lesson{ModuleID: m.ID, Title: "Reading", Body: "Text", OrderIndex: 1}).Error)

		for j := 0; j < itemsPerModule; j++ {
			item := training.QuizItem{
				ModuleSlug:   m.Slug,
				Prompt:       fmt.Sprintf("%s question %d", m.Slug, j+1),
				Choices:      datatypes.JSON(choices),
				AnswerIndex:  1,
				Tags:         "safety," + m.Slug,
				ExamEligible: true,
				IsActive:     true,
			}
			require.NoError(t, db.Create(&item).Error)
		}
		mods = append(mods, m)
	}
	return course, mods
}

// Enroll creates an enrollment for user in course.
func Enroll(t *testing.T, db *gorm.DB, userID, courseID uint) training.Enrollment {
	t.Helper()
	var total int64
	require.NoError(t, db.Model(&training.Module{}).Where("course_id = ? AND is_deleted = false", courseID).Count(&total).Error)

	e := training.Enrollment{
		UserID:       userID,
		CourseID:     courseID,
		Source:       training.SourceAdmin,
		Status:       training.EnrollmentEnrolled,
		TotalModules: int(total),
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// PassModules marks every module as passed for the enrollment.
func PassModules(t *testing.T, db *gorm.DB, e *training.Enrollment, modules []training.Module) {
	t.Helper()
	now := time.Now()
	for _, m := range modules {
		require.NoError(t, db.Create(&training.ModuleProgress{
			EnrollmentID: e.ID,
			ModuleID:     m.ID,
			BestPercent:  100,
			Attempts:     1,
			Passed:       true,
			PassedAt:     &now,
		}).Error)
	}
	e.PassedModules = len(modules)
	e.Progress = 100
	e.Status = training.EnrollmentInProgress
	require.NoError(t, db.Save(e).Error)
}

// CreateOrg inserts an organization owned by owner with an OWNER membership.
func CreateOrg(t *testing.T, db *gorm.DB, name string, owner models.User) enterprise.Organization {
	t.Helper()
	org := enterprise.Organization{Name: name, Slug: uuid.NewString()[:8] + "-org", OwnerID: owner.ID}
	require.NoError(t, db.Create(&org).Error)
	AddMember(t, db, org.ID, owner.ID, enterprise.RoleOwner)
	return org
}

// AddMember inserts an active membership.
func AddMember(t *testing.T, db *gorm.DB, orgID, userID uint, role string) enterprise.OrgMember {
	t.Helper()
	m := enterprise.OrgMember{OrgID: orgID, UserID: userID, Role: role, Status: enterprise.MemberActive, JoinedAt: time.Now()}
	require.NoError(t, db.Create(&m).Error)
	return m
}

// CreateSeats inserts a seat pool.
func CreateSeats(t *testing.T, db *gorm.DB, orgID, courseID uint, allocated, used int) enterprise.OrgSeat {
	t.Helper()
	s := enterprise.OrgSeat{OrgID: orgID, CourseID: courseID, AllocatedSeats: allocated, UsedSeats: used}
	require.NoError(t, db.Create(&s).Error)
	return s
}
