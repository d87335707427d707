// Package scheduler runs the periodic housekeeping jobs for training and orders.
package scheduler

import (
	"liftworks/logger"
	"liftworks/models"
	"liftworks/services/certificate"
	"liftworks/services/checkout"
	"liftworks/services/exam"
	"liftworks/services/seats"
	"time"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const tag = "[TRAINING-SCHEDULER]"

// StaleOrderAge is how long an order may stay pending before it is cancelled.
const StaleOrderAge = 24 * time.Hour

// CodeRetention is how long spent or expired one-time codes are kept.
const CodeRetention = 24 * time.Hour

// ReminderDays is how far ahead certificate renewal reminders look.
const ReminderDays = 30

// Jobs bundles the services the scheduled jobs act on.
type Jobs struct {
	DB           *gorm.DB
	Exams        *exam.Service
	Seats        *seats.Service
	Orders       *checkout.Service
	Certificates *certificate.Service
}

// ExpireExamSessions closes exam sessions past their deadline plus grace.
func (j *Jobs) ExpireExamSessions() {
	n, err := j.Exams.ExpireStale()
	if err != nil {
		logger.Log.Errorf("%s expiring exam sessions: %v", tag, err)
		return
	}
	if n > 0 {
		logger.Log.Infof("%s expired %d exam sessions", tag, n)
	}
}

// ExpireInvitations marks overdue pending invitations as expired.
func (j *Jobs) ExpireInvitations() {
	n, err := j.Seats.ExpireInvitations()
	if err != nil {
		logger.Log.Errorf("%s expiring invitations: %v", tag, err)
		return
	}
	if n > 0 {
		logger.Log.Infof("%s expired %d invitations", tag, n)
	}
}

// CancelStaleOrders cancels abandoned pending orders.
func (j *Jobs) CancelStaleOrders() {
	n, err := j.Orders.CancelStale(StaleOrderAge)
	if err != nil {
		logger.Log.Errorf("%s cancelling stale orders: %v", tag, err)
		return
	}
	if n > 0 {
		logger.Log.Infof("%s cancelled %d stale orders", tag, n)
	}
}

// SendCertificateReminders e-mails holders whose certificate expires before the
// end of the day ReminderDays from now.
func (j *Jobs) SendCertificateReminders() {
	horizon := now.EndOfDay().AddDate(0, 0, ReminderDays)
	sent, err := j.Certificates.RemindExpiring(j.DB, time.Until(horizon))
	if err != nil {
		logger.Log.Errorf("%s sending certificate reminders: %v", tag, err)
		return
	}
	logger.Log.Infof("%s sent %d certificate renewal reminders", tag, sent)
}

// PurgeOneTimeCodes hard-deletes one-time codes that expired over CodeRetention ago.
func (j *Jobs) PurgeOneTimeCodes() {
	res := j.DB.Unscoped().Where("expires_at < ?", time.Now().Add(-CodeRetention)).Delete(&models.OneTimeCode{})
	if res.Error != nil {
		logger.Log.Errorf("%s purging one-time codes: %v", tag, res.Error)
		return
	}
	if res.RowsAffected > 0 {
		logger.Log.Infof("%s purged %d one-time codes", tag, res.RowsAffected)
	}
}

// Register adds every job to c.
func (j *Jobs) Register(c *cron.Cron) error {
	schedule := []struct {
		spec string
		name string
		run  func()
	}{
		{"*/5 * * * *", "expire exam sessions", j.ExpireExamSessions},
		{"0 * * * *", "expire invitations", j.ExpireInvitations},
		{"15 * * * *", "cancel stale orders", j.CancelStaleOrders},
		{"0 8 * * *", "certificate reminders", j.SendCertificateReminders},
		{"30 3 * * *", "purge one-time codes", j.PurgeOneTimeCodes},
	}
	for _, s := range schedule {
		if _, err := c.AddFunc(s.spec, s.run); err != nil {
			return err
		}
		logger.Log.Infof("%s %s scheduled (%s)", tag, s.name, s.spec)
	}
	return nil
}

// InitializeTrainingScheduler starts the cron runner with every job registered.
func InitializeTrainingScheduler(jobs *Jobs) (*cron.Cron, error) {
	logger.Log.Infof("%s Initializing training scheduler...", tag)

	c := cron.New()
	if err := jobs.Register(c); err != nil {
		return nil, err
	}
	c.Start()

	logger.Log.Infof("%s Training scheduler started", tag)
	return c, nil
}
