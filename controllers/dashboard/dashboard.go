package dashboardController

import (
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/training"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Stats is the admin dashboard summary.
type Stats struct {
	Users                 int64 `json:"users"`
	OrdersToday           int64 `json:"orders_today"`
	OrdersThisMonth       int64 `json:"orders_this_month"`
	RevenueThisMonthCents int64 `json:"revenue_this_month_cents"`
	OpenQuotes            int64 `json:"open_quotes"`
	ActiveEnrollments     int64 `json:"active_enrollments"`
	CertificatesThisMonth int64 `json:"certificates_this_month"`
	ExamsSubmitted        int64 `json:"exams_submitted"`
	ExamPassRate          int   `json:"exam_pass_rate"`
}

var paidStatuses = []string{catalog.OrderPaid, catalog.OrderShipped, catalog.OrderDelivered}

// Collect computes the dashboard for the day and month containing at.
func Collect(db *gorm.DB, at time.Time) (*Stats, error) {
	day := now.With(at)
	dayStart, dayEnd := day.BeginningOfDay(), day.EndOfDay()
	monthStart, monthEnd := day.BeginningOfMonth(), day.EndOfMonth()

	s := &Stats{}
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&s.Users, db.Model(&models.User{}).Where("is_deleted = ?", false)},
		{&s.OrdersToday, db.Model(&catalog.Order{}).Where("created_at BETWEEN ? AND ? AND status <> ?", dayStart, dayEnd, catalog.OrderCancelled)},
		{&s.OrdersThisMonth, db.Model(&catalog.Order{}).Where("created_at BETWEEN ? AND ? AND status <> ?", monthStart, monthEnd, catalog.OrderCancelled)},
		{&s.OpenQuotes, db.Model(&catalog.QuoteRequest{}).Where("status IN ?", []string{catalog.QuoteNew, catalog.QuoteContacted, catalog.QuoteQuoted})},
		{&s.ActiveEnrollments, db.Model(&training.Enrollment{}).
			Where("status IN ? AND is_deleted = ?", []string{training.EnrollmentEnrolled, training.EnrollmentInProgress}, false)},
		{&s.CertificatesThisMonth, db.Model(&training.Certificate{}).
			Where("issued_at BETWEEN ? AND ? AND is_deleted = ?", monthStart, monthEnd, false)},
		{&s.ExamsSubmitted, db.Model(&training.ExamSession{}).Where("status = ?", training.SessionSubmitted)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&catalog.Order{}).
		Where("status IN ? AND paid_at BETWEEN ? AND ?", paidStatuses, monthStart, monthEnd).
		Select("COALESCE(SUM(total_cents), 0)").Scan(&s.RevenueThisMonthCents).Error; err != nil {
		return nil, err
	}

	if s.ExamsSubmitted > 0 {
		var passed int64
		if err := db.Model(&training.ExamSession{}).
			Where("status = ? AND passed = ?", training.SessionSubmitted, true).Count(&passed).Error; err != nil {
			return nil, err
		}
		s.ExamPassRate = int(passed * 100 / s.ExamsSubmitted)
	}
	return s, nil
}

// AdminDashboardStats returns the dashboard counts
func AdminDashboardStats(c *fiber.Ctx) error {
	stats, err := Collect(database.Database.Db, time.Now())
	if err != nil {
		logger.Log.Errorw("dashboard stats failed", "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to load dashboard!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard stats fetched successfully!", stats)
}
