// Package seats manages organization seat pools and invitation redemption.
package seats

import (
	"errors"
	"fmt"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Redeem failure reasons.
const (
	ReasonNotFound      = "not_found"
	ReasonAlreadyUsed   = "already_used"
	ReasonRevoked       = "revoked"
	ReasonExpired       = "expired"
	ReasonEmailMismatch = "email_mismatch"
	ReasonNoSeats       = "no_seats"
)

// RedeemError explains a refused redemption.
type RedeemError struct {
	Reason string
}

func (e *RedeemError) Error() string {
	return "cannot redeem invitation: " + e.Reason
}

var (
	ErrNoSeatPool        = errors.New("organization has no seat pool for this course")
	ErrNoFreeSeats       = errors.New("no free seats left in the pool")
	ErrInvalidRole       = errors.New("invalid organization role")
	ErrInviteNotFound    = errors.New("invitation not found")
	ErrInviteNotPending  = errors.New("invitation is no longer pending")
	ErrNoSeatEnrollment  = errors.New("member has no seat enrollment for this course")
	ErrEnrollmentStarted = errors.New("enrollment already has progress")
	ErrInvalidSeatCount  = errors.New("seat count must be positive")
)

// Redemption is the result of a successful redeem.
type Redemption struct {
	Invitation   *enterprise.Invitation `json:"invitation"`
	Membership   *enterprise.OrgMember  `json:"membership"`
	Enrollment   *training.Enrollment   `json:"enrollment"`
	SeatConsumed bool                   `json:"seat_consumed"`
}

// Service runs seat operations against a database.
type Service struct {
	db        *gorm.DB
	inviteTTL time.Duration
	now       func() time.Time
}

// NewService builds a Service; invitations expire after inviteTTL.
func NewService(db *gorm.DB, inviteTTL time.Duration) *Service {
	return &Service{db: db, inviteTTL: inviteTTL, now: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AllocateSeats adds n seats to the org's pool for course, creating it when missing.
// db may be a transaction.
func AllocateSeats(db *gorm.DB, orgID, courseID uint, n int) (*enterprise.OrgSeat, error) {
	if n <= 0 {
		return nil, ErrInvalidSeatCount
	}
	pool := enterprise.OrgSeat{OrgID: orgID, CourseID: courseID, AllocatedSeats: n}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}, {Name: "course_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"allocated_seats": gorm.Expr("org_seats.allocated_seats + ?", n),
			"updated_at":      time.Now(),
		}),
	}).Create(&pool).Error
	if err != nil {
		return nil, fmt.Errorf("allocate seats: %w", err)
	}

	var saved enterprise.OrgSeat
	if err := db.Where("org_id = ? AND course_id = ?", orgID, courseID).First(&saved).Error; err != nil {
		return nil, fmt.Errorf("reload seat pool: %w", err)
	}
	logger.Log.Infow("seats allocated", "org_id", orgID, "course_id", courseID, "added", n, "allocated", saved.AllocatedSeats)
	return &saved, nil
}

// Pools lists the org's seat pools.
func (s *Service) Pools(orgID uint) ([]enterprise.OrgSeat, error) {
	var pools []enterprise.OrgSeat
	err := s.db.Where("org_id = ?", orgID).Order("course_id asc").Find(&pools).Error
	return pools, err
}

// Invite creates a pending invitation. The pool must exist and have a free seat;
// pending invitations are not counted against it.
func (s *Service) Invite(orgID, courseID, inviterID uint, email, role string) (*enterprise.Invitation, error) {
	if role == "" {
		role = enterprise.RoleLearner
	}
	if !enterprise.ValidRole(role) || role == enterprise.RoleOwner {
		return nil, ErrInvalidRole
	}

	var pool enterprise.OrgSeat
	err := s.db.Where("org_id = ? AND course_id = ?", orgID, courseID).First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSeatPool
	}
	if err != nil {
		return nil, fmt.Errorf("load seat pool: %w", err)
	}
	if pool.Available() == 0 {
		return nil, ErrNoFreeSeats
	}

	now := s.now()
	invite := enterprise.Invitation{
		OrgID:      orgID,
		CourseID:   courseID,
		Email:      strings.ToLower(strings.TrimSpace(email)),
		Role:       role,
		Token:      uuid.NewString(),
		Status:     enterprise.InvitePending,
		InvitedBy:  inviterID,
		ExpiresAt:  now.Add(s.inviteTTL),
		LastSentAt: &now,
	}
	if err := s.db.Create(&invite).Error; err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	logger.Log.Infow("invitation created", "org_id", orgID, "course_id", courseID, "invite_id", invite.ID)
	return &invite, nil
}

// Invitations lists the org's invitations, optionally filtered by status.
func (s *Service) Invitations(orgID uint, status string) ([]enterprise.Invitation, error) {
	q := s.db.Where("org_id = ? AND is_deleted = false", orgID)
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}
	var invites []enterprise.Invitation
	err := q.Order("id desc").Find(&invites).Error
	return invites, err
}

func (s *Service) pendingInvite(orgID, inviteID uint) (*enterprise.Invitation, error) {
	var invite enterprise.Invitation
	err := s.db.Where("id = ? AND org_id = ? AND is_deleted = false", inviteID, orgID).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	if invite.Status != enterprise.InvitePending {
		return nil, ErrInviteNotPending
	}
	return &invite, nil
}

// Revoke cancels a pending invitation.
func (s *Service) Revoke(orgID, inviteID uint) (*enterprise.Invitation, error) {
	invite, err := s.pendingInvite(orgID, inviteID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(invite).Update("status", enterprise.InviteRevoked).Error; err != nil {
		return nil, fmt.Errorf("revoke invitation: %w", err)
	}
	invite.Status = enterprise.InviteRevoked
	return invite, nil
}

// Resend extends a pending invitation's expiry and stamps the send time.
func (s *Service) Resend(orgID, inviteID uint) (*enterprise.Invitation, error) {
	invite, err := s.pendingInvite(orgID, inviteID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expires := now.Add(s.inviteTTL)
	if err := s.db.Model(invite).Updates(map[string]interface{}{"expires_at": expires, "last_sent_at": now}).Error; err != nil {
		return nil, fmt.Errorf("resend invitation: %w", err)
	}
	invite.ExpiresAt, invite.LastSentAt = expires, &now
	return invite, nil
}

// ExpireInvitations marks overdue pending invitations expired.
func (s *Service) ExpireInvitations() (int64, error) {
	res := s.db.Model(&enterprise.Invitation{}).
		Where("status = ? AND expires_at < ?", enterprise.InvitePending, s.now()).
		Update("status", enterprise.InviteExpired)
	return res.RowsAffected, res.Error
}

// Redeem accepts the invitation identified by token for user.
func (s *Service) Redeem(user models.User, token string) (*Redemption, error) {
	out, err := s.redeem(user, token)
	outcome := "accepted"
	var re *RedeemError
	if errors.As(err, &re) {
		outcome = re.Reason
	} else if err != nil {
		outcome = "error"
	}
	metrics.RecordSeatClaim(outcome)
	return out, err
}

func (s *Service) redeem(user models.User, token string) (*Redemption, error) {
	var invite enterprise.Invitation
	err := s.db.Where("token = ? AND is_deleted = false", strings.TrimSpace(token)).First(&invite).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &RedeemError{Reason: ReasonNotFound}
	}
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}

	switch invite.Status {
	case enterprise.InvitePending:
	case enterprise.InviteRevoked:
		return nil, &RedeemError{Reason: ReasonRevoked}
	case enterprise.InviteExpired:
		return nil, &RedeemError{Reason: ReasonExpired}
	default:
		return nil, &RedeemError{Reason: ReasonAlreadyUsed}
	}

	now := s.now()
	if now.After(invite.ExpiresAt) {
		err := s.db.Model(&enterprise.Invitation{}).
			Where("id = ? AND status = ?", invite.ID, enterprise.InvitePending).
			Update("status", enterprise.InviteExpired).Error
		if err != nil {
			logger.Log.Errorw("expire invitation", "invite_id", invite.ID, "error", err)
		}
		return nil, &RedeemError{Reason: ReasonExpired}
	}

	if !strings.EqualFold(strings.TrimSpace(invite.Email), strings.TrimSpace(user.Email)) {
		return nil, &RedeemError{Reason: ReasonEmailMismatch}
	}

	out := &Redemption{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var enrollment training.Enrollment
		err := tx.Where("user_id = ? AND course_id = ? AND is_deleted = false", user.ID, invite.CourseID).
			First(&enrollment).Error
		enrolled := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var seatID *uint
		if !enrolled {
			pool, err := ClaimSeat(tx, invite.OrgID, invite.CourseID)
			if err != nil {
				return err
			}
			seatID = &pool.ID
			out.SeatConsumed = true
		}

		member, err := upsertMember(tx, invite.OrgID, user.ID, invite.Role, now)
		if err != nil {
			return err
		}
		out.Membership = member

		orgID := invite.OrgID
		if enrolled {
			if enrollment.OrgID == nil {
				if err := tx.Model(&enrollment).Update("org_id", orgID).Error; err != nil {
					return err
				}
				enrollment.OrgID = &orgID
			}
		} else {
			var total int64
			if err := tx.Model(&training.Module{}).
				Where("course_id = ? AND is_deleted = false", invite.CourseID).Count(&total).Error; err != nil {
				return err
			}
			enrollment = training.Enrollment{
				UserID:       user.ID,
				CourseID:     invite.CourseID,
				OrgID:        &orgID,
				SeatID:       seatID,
				Source:       training.SourceSeat,
				Status:       training.EnrollmentEnrolled,
				TotalModules: int(total),
			}
			if err := tx.Create(&enrollment).Error; err != nil {
				return err
			}
		}
		out.Enrollment = &enrollment

		res := tx.Model(&enterprise.Invitation{}).
			Where("id = ? AND status = ?", invite.ID, enterprise.InvitePending).
			Updates(map[string]interface{}{
				"status":      enterprise.InviteAccepted,
				"accepted_by": user.ID,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &RedeemError{Reason: ReasonAlreadyUsed}
		}
		return nil
	})
	if err != nil {
		var re *RedeemError
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, fmt.Errorf("redeem invitation: %w", err)
	}

	invite.Status = enterprise.InviteAccepted
	invite.AcceptedBy = &user.ID
	invite.AcceptedAt = &now
	out.Invitation = &invite

	logger.Log.Infow("invitation redeemed", "invite_id", invite.ID, "user_id", user.ID,
		"org_id", invite.OrgID, "seat_consumed", out.SeatConsumed)
	return out, nil
}

// ClaimSeat takes one seat from the pool with a guarded increment. It fails
// with a no_seats RedeemError when the pool is missing or full.
func ClaimSeat(tx *gorm.DB, orgID, courseID uint) (*enterprise.OrgSeat, error) {
	var pool enterprise.OrgSeat
	err := tx.Where("org_id = ? AND course_id = ?", orgID, courseID).First(&pool).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &RedeemError{Reason: ReasonNoSeats}
	}
	if err != nil {
		return nil, err
	}

	res := tx.Model(&enterprise.OrgSeat{}).
		Where("id = ? AND used_seats < allocated_seats", pool.ID).
		UpdateColumn("used_seats", gorm.Expr("used_seats + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &RedeemError{Reason: ReasonNoSeats}
	}
	pool.UsedSeats++
	return &pool, nil
}

func upsertMember(tx *gorm.DB, orgID, userID uint, role string, now time.Time) (*enterprise.OrgMember, error) {
	var member enterprise.OrgMember
	err := tx.Where("org_id = ? AND user_id = ?", orgID, userID).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		member = enterprise.OrgMember{
			OrgID:    orgID,
			UserID:   userID,
			Role:     role,
			Status:   enterprise.MemberActive,
			JoinedAt: now,
		}
		if err := tx.Create(&member).Error; err != nil {
			return nil, err
		}
		return &member, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"role": enterprise.HigherRole(member.Role, role)}
	if member.Status != enterprise.MemberActive {
		// Rejoining resets the role to the invited one.
		updates["role"] = role
		updates["status"] = enterprise.MemberActive
		updates["joined_at"] = now
		updates["removed_at"] = nil
	}
	if err := tx.Model(&member).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := tx.First(&member, member.ID).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ReleaseSeat removes a member's untouched seat enrollment and returns the
// seat to the pool.
func (s *Service) ReleaseSeat(orgID, userID, courseID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var enrollment training.Enrollment
		err := tx.Where("user_id = ? AND course_id = ? AND org_id = ? AND source = ? AND is_deleted = false",
			userID, courseID, orgID, training.SourceSeat).First(&enrollment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoSeatEnrollment
		}
		if err != nil {
			return err
		}
		if enrollment.Status != training.EnrollmentEnrolled || enrollment.Progress > 0 || enrollment.PassedModules > 0 {
			return ErrEnrollmentStarted
		}

		if err := tx.Model(&enrollment).Update("is_deleted", true).Error; err != nil {
			return err
		}
		if err := tx.Delete(&enrollment).Error; err != nil {
			return err
		}
		return tx.Model(&enterprise.OrgSeat{}).
			Where("org_id = ? AND course_id = ? AND used_seats > 0", orgID, courseID).
			UpdateColumn("used_seats", gorm.Expr("used_seats - 1")).Error
	})
}
