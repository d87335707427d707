// Package roster builds an organization's operator roster and records
// employer practical evaluations.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotMember     = errors.New("learner is not an active member of this organization")
	ErrInvalidResult = errors.New("evaluation result must be PASS, FAIL or NEEDS_TRAINING")
)

// Entry is one roster line: a member and, when enrolled, one course.
type Entry struct {
	UserID             uint       `json:"user_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	JoinedAt           time.Time  `json:"joined_at"`
	CourseID           uint       `json:"course_id,omitempty"`
	CourseTitle        string     `json:"course_title,omitempty"`
	EnrollmentStatus   string     `json:"enrollment_status,omitempty"`
	Progress           float64    `json:"progress"`
	LatestExamScore    *int       `json:"latest_exam_score"`
	CertificateNumber  string     `json:"certificate_number,omitempty"`
	CertificateExpires *time.Time `json:"certificate_expires"`
	EvaluationResult   string     `json:"evaluation_result,omitempty"`
	EvaluatedAt        *time.Time `json:"evaluated_at"`
	Authorized         bool       `json:"authorized"`
}

// Authorized reports whether a learner may operate equipment at now: the
// certificate is valid and the latest evaluation is a PASS no older than the
// certificate's validity span.
func Authorized(cert *training.Certificate, eval *enterprise.Evaluation, now time.Time) bool {
	if cert == nil || eval == nil || !cert.Valid(now) {
		return false
	}
	if eval.Result != enterprise.EvalPass || eval.EvaluatedAt.After(now) {
		return false
	}
	span := cert.ExpiresAt.Sub(cert.IssuedAt)
	return !eval.EvaluatedAt.Before(now.Add(-span))
}

// Build returns the roster of orgID's active members.
func Build(db *gorm.DB, orgID uint, now time.Time) ([]Entry, error) {
	type memberRow struct {
		UserID   uint
		Role     string
		JoinedAt time.Time
		Name     string
		Email    string
	}
	var members []memberRow
	err := db.Table("org_members").
		Select("org_members.user_id, org_members.role, org_members.joined_at, users.name, users.email").
		Joins("JOIN users ON users.id = org_members.user_id").
		Where("org_members.org_id = ? AND org_members.status = ? AND org_members.deleted_at IS NULL", orgID, enterprise.MemberActive).
		Order("users.name asc, org_members.user_id asc").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	titles := map[uint]string{}
	var courses []training.Course
	if err := db.Select("id", "title").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	for _, c := range courses {
		titles[c.ID] = c.Title
	}

	out := make([]Entry, 0, len(members))
	for _, m := range members {
		base := Entry{UserID: m.UserID, Name: m.Name, Email: m.Email, Role: m.Role, JoinedAt: m.JoinedAt}

		eval, err := LatestEvaluation(db, orgID, m.UserID)
		if err != nil {
			return nil, err
		}
		if eval != nil {
			base.EvaluationResult = eval.Result
			at := eval.EvaluatedAt
			base.EvaluatedAt = &at
		}

		var enrollments []training.Enrollment
		if err := db.Where("user_id = ? AND org_id = ? AND is_deleted = false", m.UserID, orgID).
			Order("course_id asc").Find(&enrollments).Error; err != nil {
			return nil, fmt.Errorf("load enrollments: %w", err)
		}
		if len(enrollments) == 0 {
			out = append(out, base)
			continue
		}

		for _, e := range enrollments {
			row := base
			row.CourseID = e.CourseID
			row.CourseTitle = titles[e.CourseID]
			row.EnrollmentStatus = e.Status
			row.Progress = e.Progress

			var session training.ExamSession
			err := db.Where("user_id = ? AND course_id = ? AND status = ? AND is_deleted = false",
				m.UserID, e.CourseID, training.SessionSubmitted).Order("id desc").Limit(1).Find(&session).Error
			if err != nil {
				return nil, fmt.Errorf("load exam sessions: %w", err)
			}
			if session.ID != 0 {
				score := session.Score
				row.LatestExamScore = &score
			}

			cert, err := latestCertificate(db, m.UserID, e.CourseID)
			if err != nil {
				return nil, err
			}
			if cert != nil {
				row.CertificateNumber = cert.CertificateNumber
				expires := cert.ExpiresAt
				row.CertificateExpires = &expires
			}
			row.Authorized = Authorized(cert, eval, now)
			out = append(out, row)
		}
	}
	return out, nil
}

func latestCertificate(db *gorm.DB, userID, courseID uint) (*training.Certificate, error) {
	var cert training.Certificate
	err := db.Where("user_id = ? AND course_id = ? AND revoked = ? AND is_deleted = false", userID, courseID, false).
		Order("issued_at desc").Limit(1).Find(&cert).Error
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if cert.ID == 0 {
		return nil, nil
	}
	return &cert, nil
}

var csvHeader = []string{
	"user_id", "name", "email", "role", "course", "enrollment_status", "progress",
	"latest_exam_score", "certificate_number", "certificate_expires", "evaluation_result",
	"evaluated_at", "authorized",
}

// WriteCSV writes entries to w with a header row.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		score := ""
		if e.LatestExamScore != nil {
			score = strconv.Itoa(*e.LatestExamScore)
		}
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(e.UserID), 10),
			e.Name,
			e.Email,
			e.Role,
			e.CourseTitle,
			e.EnrollmentStatus,
			strconv.FormatFloat(e.Progress, 'f', 0, 64),
			score,
			e.CertificateNumber,
			formatDate(e.CertificateExpires),
			e.EvaluationResult,
			formatDate(e.EvaluatedAt),
			strconv.FormatBool(e.Authorized),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// EvaluationInput is a practical evaluation to record.
type EvaluationInput struct {
	LearnerID     uint
	EquipmentType string
	Result        string
	Notes         string
	EvaluatedAt   time.Time
}

// CreateEvaluation records an evaluation of a member of orgID by evaluatorID.
func CreateEvaluation(db *gorm.DB, orgID, evaluatorID uint, in EvaluationInput) (*enterprise.Evaluation, error) {
	result := strings.ToUpper(strings.TrimSpace(in.Result))
	switch result {
	case enterprise.EvalPass, enterprise.EvalFail, enterprise.EvalNeedsTraining:
	default:
		return nil, ErrInvalidResult
	}

	var count int64
	if err := db.Model(&enterprise.OrgMember{}).
		Where("org_id = ? AND user_id = ? AND status = ?", orgID, in.LearnerID, enterprise.MemberActive).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if count == 0 {
		return nil, ErrNotMember
	}

	if in.EvaluatedAt.IsZero() {
		in.EvaluatedAt = time.Now()
	}
	eval := enterprise.Evaluation{
		OrgID:         orgID,
		LearnerID:     in.LearnerID,
		EvaluatorID:   evaluatorID,
		EquipmentType: strings.TrimSpace(in.EquipmentType),
		Result:        result,
		Notes:         in.Notes,
		EvaluatedAt:   in.EvaluatedAt,
	}
	if err := db.Create(&eval).Error; err != nil {
		return nil, fmt.Errorf("create evaluation: %w", err)
	}
	return &eval, nil
}

// Evaluations lists orgID's evaluations, newest first; learnerID 0 lists all.
func Evaluations(db *gorm.DB, orgID, learnerID uint) ([]enterprise.Evaluation, error) {
	q := db.Where("org_id = ? AND is_deleted = false", orgID)
	if learnerID != 0 {
		q = q.Where("learner_id = ?", learnerID)
	}
	var evals []enterprise.Evaluation
	err := q.Order("evaluated_at desc, id desc").Find(&evals).Error
	return evals, err
}

// LatestEvaluation returns the learner's most recent evaluation in orgID, or nil.
func LatestEvaluation(db *gorm.DB, orgID, learnerID uint) (*enterprise.Evaluation, error) {
	var eval enterprise.Evaluation
	err := db.Where("org_id = ? AND learner_id = ? AND is_deleted = false", orgID, learnerID).
		Order("evaluated_at desc, id desc").Limit(1).Find(&eval).Error
	if err != nil {
		return nil, fmt.Errorf("load evaluation: %w", err)
	}
	if eval.ID == 0 {
		return nil, nil
	}
	return &eval, nil
}
