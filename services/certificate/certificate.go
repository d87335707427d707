// Package certificate issues, renders and verifies operator training certificates.
package certificate

import (
	"errors"
	"fmt"
	"liftworks/config"
	"liftworks/logger"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/utils"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned for unknown certificate numbers.
var ErrNotFound = errors.New("certificate not found")

// Service issues certificates into a directory of rendered PDFs.
type Service struct {
	dir           string
	baseURL       string
	validityYears int
	now           func() time.Time
}

// NewService reads CERTIFICATE_DIR, PUBLIC_BASE_URL and CERTIFICATE_VALIDITY_YEARS.
func NewService(cfg *config.Config) *Service {
	years := cfg.CertificateValidityYears
	if years <= 0 {
		years = 3
	}
	return &Service{dir: cfg.CertificateDir, baseURL: cfg.PublicBaseURL, validityYears: years, now: time.Now}
}

// WithClock overrides the issue clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NewNumber formats a certificate number: LW-<year>-<8 hex>.
func NewNumber(t time.Time) string {
	return fmt.Sprintf("LW-%d-%s", t.Year(), utils.ShortCode(8))
}

// VerifyURL is the public verification link for number.
func (s *Service) VerifyURL(number string) string {
	return s.baseURL + "/certificates/verify/" + number
}

// Issue creates the certificate for a passed session. Issuing twice for the
// same session returns the existing certificate.
func (s *Service) Issue(db *gorm.DB, session *training.ExamSession) (*training.Certificate, error) {
	var existing training.Certificate
	err := db.Where("session_id = ? AND is_deleted = false", session.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing certificate: %w", err)
	}

	var user models.User
	if err := db.First(&user, session.UserID).Error; err != nil {
		return nil, fmt.Errorf("load holder: %w", err)
	}
	var course training.Course
	if err := db.First(&course, session.CourseID).Error; err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	var enrollment training.Enrollment
	if err := db.First(&enrollment, session.EnrollmentID).Error; err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}

	issued := s.now()
	cert := training.Certificate{
		UserID:            user.ID,
		CourseID:          course.ID,
		SessionID:         session.ID,
		OrgID:             enrollment.OrgID,
		HolderName:        user.Name,
		CourseTitle:       course.Title,
		Score:             session.Score,
		CertificateNumber: NewNumber(issued),
		IssuedAt:          issued,
		ExpiresAt:         issued.AddDate(s.validityYears, 0, 0),
	}

	path, err := s.Render(&cert)
	if err != nil {
		return nil, err
	}
	cert.PDFPath = path
	if err := db.Create(&cert).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("save certificate: %w", err)
	}

	logger.Log.Infow("certificate issued", "number", cert.CertificateNumber, "user_id", user.ID, "course_id", course.ID)
	return &cert, nil
}

// Announce e-mails the holder about a newly issued certificate.
func (s *Service) Announce(db *gorm.DB, cert *training.Certificate) {
	var user models.User
	if err := db.First(&user, cert.UserID).Error; err != nil {
		logger.Log.Errorw("announce certificate", "number", cert.CertificateNumber, "error", err)
		return
	}
	utils.SendCertificateEmail(user.Email, cert.HolderName, cert.CourseTitle, cert.CertificateNumber,
		s.VerifyURL(cert.CertificateNumber), cert.ExpiresAt)
}

// Find loads a certificate by number.
func Find(db *gorm.DB, number string) (*training.Certificate, error) {
	var cert training.Certificate
	err := db.Where("certificate_number = ? AND is_deleted = false", number).First(&cert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// Verification is the public view of a certificate.
type Verification struct {
	Number  string    `json:"number"`
	Valid   bool      `json:"valid"`
	Holder  string    `json:"holder"`
	Course  string    `json:"course"`
	Score   int       `json:"score"`
	Issued  time.Time `json:"issued"`
	Expires time.Time `json:"expires"`
	Revoked bool      `json:"revoked"`
}

// Verify reports the public status of number.
func (s *Service) Verify(db *gorm.DB, number string) (*Verification, error) {
	cert, err := Find(db, number)
	if err != nil {
		return nil, err
	}
	return &Verification{
		Number:  cert.CertificateNumber,
		Valid:   cert.Valid(s.now()),
		Holder:  cert.HolderName,
		Course:  cert.CourseTitle,
		Score:   cert.Score,
		Issued:  cert.IssuedAt,
		Expires: cert.ExpiresAt,
		Revoked: cert.Revoked,
	}, nil
}

// Revoke marks the certificate revoked.
func (s *Service) Revoke(db *gorm.DB, number string) (*training.Certificate, error) {
	cert, err := Find(db, number)
	if err != nil {
		return nil, err
	}
	if cert.Revoked {
		return cert, nil
	}
	now := s.now()
	if err := db.Model(cert).Updates(map[string]interface{}{"revoked": true, "revoked_at": now}).Error; err != nil {
		return nil, fmt.Errorf("revoke certificate: %w", err)
	}
	cert.Revoked, cert.RevokedAt = true, &now
	return cert, nil
}

// PDFPath returns the rendered file for cert, re-rendering if it went missing.
func (s *Service) PDFPath(db *gorm.DB, cert *training.Certificate) (string, error) {
	if cert.PDFPath != "" {
		if _, err := os.Stat(cert.PDFPath); err == nil {
			return cert.PDFPath, nil
		}
	}
	path, err := s.Render(cert)
	if err != nil {
		return "", err
	}
	if err := db.Model(cert).Update("pdf_path", path).Error; err != nil {
		return "", fmt.Errorf("store pdf path: %w", err)
	}
	cert.PDFPath = path
	return path, nil
}

// CanDownload reports whether the requester may fetch the holder's PDF: the
// holder, a site admin, or an owner/admin of an org the holder belongs to.
func CanDownload(db *gorm.DB, cert *training.Certificate, userID uint, siteRole string) (bool, error) {
	if cert.UserID == userID || siteRole == models.RoleAdmin {
		return true, nil
	}
	var count int64
	err := db.Table("org_members AS admin").
		Joins("JOIN org_members AS holder ON holder.org_id = admin.org_id").
		Where("admin.user_id = ? AND admin.status = ? AND admin.role IN ? AND admin.deleted_at IS NULL",
			userID, enterprise.MemberActive, []string{enterprise.RoleOwner, enterprise.RoleAdmin}).
		Where("holder.user_id = ? AND holder.status = ? AND holder.deleted_at IS NULL",
			cert.UserID, enterprise.MemberActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RemindExpiring emails holders whose certificates expire within window and
// have not been reminded yet. It returns the number of reminders sent.
func (s *Service) RemindExpiring(db *gorm.DB, window time.Duration) (int, error) {
	now := s.now()
	var certs []training.Certificate
	err := db.Where("revoked = ? AND reminder_sent = ? AND is_deleted = false AND expires_at > ? AND expires_at <= ?",
		false, false, now, now.Add(window)).Find(&certs).Error
	if err != nil {
		return 0, fmt.Errorf("load expiring certificates: %w", err)
	}

	sent := 0
	for i := range certs {
		cert := &certs[i]
		var user models.User
		if err := db.First(&user, cert.UserID).Error; err != nil {
			logger.Log.Warnw("certificate holder missing", "number", cert.CertificateNumber, "error", err)
			continue
		}
		res := db.Model(&training.Certificate{}).
			Where("id = ? AND reminder_sent = ?", cert.ID, false).
			Update("reminder_sent", true)
		if res.Error != nil {
			return sent, fmt.Errorf("mark reminder sent: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		utils.SendCertificateReminderEmail(user.Email, user.Name, cert.CourseTitle, cert.CertificateNumber, cert.ExpiresAt)
		sent++
	}
	return sent, nil
}

func (s *Service) pdfFile(number string) string {
	return filepath.Join(s.dir, number+".pdf")
}
