package dashboardController

import (
	"testing"
	"time"

	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectCountsWindows(t *testing.T) {
	db := testutil.NewDB(t)
	at := time.Date(2026, 10, 14, 15, 0, 0, 0, time.Local)
	earlier := at.AddDate(0, 0, -3)
	lastMonth := at.AddDate(0, -1, 0)

	buyer := testutil.CreateUser(t, db, "buyer@example.com", models.RoleUser)
	testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	course, _ := testutil.CreateCourse(t, db, "forklift", 1, 1)
	testutil.Enroll(t, db, buyer.ID, course.ID)

	orders := []catalog.Order{
		{Number: "LW-1", UserID: buyer.ID, Status: catalog.OrderPaid, TotalCents: 10000, PaidAt: &at},
		{Number: "LW-2", UserID: buyer.ID, Status: catalog.OrderDelivered, TotalCents: 2500, PaidAt: &earlier},
		{Number: "LW-3", UserID: buyer.ID, Status: catalog.OrderCancelled, TotalCents: 999},
		{Number: "LW-4", UserID: buyer.ID, Status: catalog.OrderPaid, TotalCents: 7000, PaidAt: &lastMonth},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}
	require.NoError(t, db.Model(&orders[0]).Update("created_at", at).Error)
	require.NoError(t, db.Model(&orders[1]).Update("created_at", earlier).Error)
	require.NoError(t, db.Model(&orders[2]).Update("created_at", at).Error)
	require.NoError(t, db.Model(&orders[3]).Update("created_at", lastMonth).Error)

	for _, status := range []string{catalog.QuoteNew, catalog.QuoteQuoted, catalog.QuoteWon} {
		require.NoError(t, db.Create(&catalog.QuoteRequest{Kind: catalog.QuoteParts, ContactName: "Dana", Email: "d@example.com", Status: status}).Error)
	}

	sessions := []training.ExamSession{
		{UserID: buyer.ID, CourseID: course.ID, Status: training.SessionSubmitted, Passed: true},
		{UserID: buyer.ID, CourseID: course.ID, Status: training.SessionSubmitted, Passed: false},
		{UserID: buyer.ID, CourseID: course.ID, Status: training.SessionSubmitted, Passed: false},
		{UserID: buyer.ID, CourseID: course.ID, Status: training.SessionInProgress},
	}
	for i := range sessions {
		require.NoError(t, db.Create(&sessions[i]).Error)
	}
	require.NoError(t, db.Create(&training.Certificate{
		UserID: buyer.ID, CourseID: course.ID, CertificateNumber: "LW-C-1", IssuedAt: at, ExpiresAt: at.AddDate(3, 0, 0),
	}).Error)

	s, err := Collect(db, at)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Users)
	assert.Equal(t, int64(1), s.OrdersToday)
	assert.Equal(t, int64(2), s.OrdersThisMonth)
	assert.Equal(t, int64(12500), s.RevenueThisMonthCents)
	assert.Equal(t, int64(2), s.OpenQuotes)
	assert.Equal(t, int64(1), s.ActiveEnrollments)
	assert.Equal(t, int64(1), s.CertificatesThisMonth)
	assert.Equal(t, int64(3), s.ExamsSubmitted)
	assert.Equal(t, 33, s.ExamPassRate)
}

func TestCollectEmptyDatabase(t *testing.T) {
	db := testutil.NewDB(t)

	s, err := Collect(db, time.Now())
	require.NoError(t, err)
	assert.Zero(t, s.ExamPassRate)
	assert.Zero(t, s.RevenueThisMonthCents)
}
