package checkout

import (
	"errors"
	"fmt"
	"liftworks/config"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/utils"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnknownSKU        = errors.New("unknown sku")
	ErrOutOfStock        = errors.New("insufficient stock")
	ErrUnknownCourse     = errors.New("course is not available for purchase")
	ErrNotOrgAdmin       = errors.New("only organization owners and admins can buy seats")
	ErrAlreadyEnrolled   = errors.New("already enrolled in this course")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("order status change not allowed")
)

// PaymentGateway opens hosted checkout sessions.
type PaymentGateway interface {
	CreateCheckoutSession(req utils.CheckoutRequest) (*utils.CheckoutSession, error)
}

// Service creates and fulfils orders.
type Service struct {
	db            *gorm.DB
	pricing       Pricing
	payments      PaymentGateway
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
}

// NewService builds a checkout service. payments may be nil, in which case orders are
// created without a payment session.
func NewService(db *gorm.DB, cfg *config.Config, payments PaymentGateway) *Service {
	return &Service{
		db: db,
		pricing: Pricing{
			TaxRate:                    cfg.TaxRate,
			FlatShippingCents:          cfg.FlatShippingCents,
			FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		},
		payments:      payments,
		webhookSecret: cfg.PaymentWebhookSecret,
		tolerance:     DefaultTolerance,
		now:           time.Now,
	}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Pricing returns the rates the service applies.
func (s *Service) Pricing() Pricing {
	return s.pricing
}

// CreateOrder prices the cart from current catalog data and stores a pending order.
func (s *Service) CreateOrder(user models.User, cart Cart) (*catalog.Order, error) {
	if len(cart.Items) == 0 && len(cart.Courses) == 0 {
		return nil, ErrEmptyCart
	}

	order := &catalog.Order{
		Number:          utils.NewOrderNumber(s.now()),
		UserID:          user.ID,
		Status:          catalog.OrderPending,
		ShippingName:    strings.TrimSpace(cart.ShippingName),
		ShippingAddress: strings.TrimSpace(cart.ShippingAddress),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		lines, physical, err := s.partLines(tx, cart.Items)
		if err != nil {
			return err
		}
		courseLines, err := s.courseLines(tx, user, cart.Courses)
		if err != nil {
			return err
		}
		lines = append(lines, courseLines...)

		var subtotal int64
		for _, l := range lines {
			subtotal += l.LineCents
		}
		totals := s.pricing.Compute(subtotal, physical)
		order.SubtotalCents = totals.SubtotalCents
		order.TaxCents = totals.TaxCents
		order.ShippingCents = totals.ShippingCents
		order.TotalCents = totals.TotalCents
		order.Items = lines

		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Infow("order created", "number", order.Number, "user_id", user.ID, "total_cents", order.TotalCents)
	metrics.RecordOrder(catalog.OrderPending)

	s.attachPaymentSession(user, order)
	return order, nil
}

func (s *Service) attachPaymentSession(user models.User, order *catalog.Order) {
	if s.payments == nil {
		return
	}
	req := utils.CheckoutRequest{
		OrderNumber:   order.Number,
		CustomerEmail: user.Email,
		TaxCents:      order.TaxCents,
		ShippingCents: order.ShippingCents,
	}
	for _, item := range order.Items {
		req.Lines = append(req.Lines, utils.CheckoutLine{
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}

	session, err := s.payments.CreateCheckoutSession(req)
	if err != nil {
		if !errors.Is(err, utils.ErrPaymentsDisabled) {
			logger.Log.Errorw("payment session failed", "number", order.Number, "error", err)
		}
		return
	}
	order.PaymentSessionID = session.ID
	order.PaymentURL = session.URL
	if err := s.db.Model(&catalog.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"payment_session_id": session.ID,
		"payment_url":        session.URL,
	}).Error; err != nil {
		logger.Log.Errorw("store payment session failed", "number", order.Number, "error", err)
	}
}

// partLines merges repeated SKUs and prices them. physical reports whether
// anything needs shipping.
func (s *Service) partLines(tx *gorm.DB, items []LineRequest) ([]catalog.OrderItem, bool, error) {
	qty := map[string]int{}
	var skus []string
	for _, it := range items {
		sku := strings.ToUpper(strings.TrimSpace(it.SKU))
		if _, seen := qty[sku]; !seen {
			skus = append(skus, sku)
		}
		qty[sku] += it.Quantity
	}
	sort.Strings(skus)

	lines := make([]catalog.OrderItem, 0, len(skus))
	for _, sku := range skus {
		var part catalog.Part
		err := tx.Where("UPPER(sku) = ? AND is_active = ? AND is_deleted = ?", sku, true, false).First(&part).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
		}
		if err != nil {
			return nil, false, err
		}
		if part.StockQty < qty[sku] {
			return nil, false, fmt.Errorf("%w: %s has %d", ErrOutOfStock, part.SKU, part.StockQty)
		}
		partID := part.ID
		lines = append(lines, catalog.OrderItem{
			Kind:           catalog.ItemPart,
			PartID:         &partID,
			SKU:            part.SKU,
			Name:           part.Name,
			Quantity:       qty[sku],
			UnitPriceCents: part.PriceCents,
			LineCents:      part.PriceCents * int64(qty[sku]),
		})
	}
	return lines, len(lines) > 0, nil
}

func (s *Service) courseLines(tx *gorm.DB, user models.User, courses []CourseRequest) ([]catalog.OrderItem, error) {
	lines := make([]catalog.OrderItem, 0, len(courses))
	for _, req := range courses {
		var course training.Course
		err := tx.Where("id = ? AND status = ? AND is_published = ? AND is_deleted = ?",
			req.CourseID, training.CourseActive, true, false).First(&course).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCourse, req.CourseID)
		}
		if err != nil {
			return nil, err
		}
		courseID := course.ID

		if req.OrgID != nil {
			if err := s.checkSeatBuyer(tx, user, *req.OrgID); err != nil {
				return nil, err
			}
			n := req.Seats
			if n <= 0 {
				n = 1
			}
			orgID := *req.OrgID
			lines = append(lines, catalog.OrderItem{
				Kind:           catalog.ItemSeats,
				CourseID:       &courseID,
				OrgID:          &orgID,
				SKU:            "SEATS-" + course.Slug,
				Name:           course.Title + " (seats)",
				Quantity:       n,
				UnitPriceCents: course.PriceCents,
				LineCents:      course.PriceCents * int64(n),
			})
			continue
		}

		var enrolled int64
		if err := tx.Model(&training.Enrollment{}).
			Where("user_id = ? AND course_id = ? AND is_deleted = ?", user.ID, course.ID, false).
			Count(&enrolled).Error; err != nil {
			return nil, err
		}
		if enrolled > 0 {
			return nil, ErrAlreadyEnrolled
		}
		lines = append(lines, catalog.OrderItem{
			Kind:           catalog.ItemCourse,
			CourseID:       &courseID,
			SKU:            "COURSE-" + course.Slug,
			Name:           course.Title,
			Quantity:       1,
			UnitPriceCents: course.PriceCents,
			LineCents:      course.PriceCents,
		})
	}
	return lines, nil
}

func (s *Service) checkSeatBuyer(tx *gorm.DB, user models.User, orgID uint) error {
	if user.Role == models.RoleAdmin {
		return nil
	}
	var member enterprise.OrgMember
	err := tx.Where("org_id = ? AND user_id = ? AND status = ?", orgID, user.ID, enterprise.MemberActive).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotOrgAdmin
	}
	if err != nil {
		return err
	}
	if !enterprise.Can(member.Role, enterprise.ActionManageSeats) {
		return ErrNotOrgAdmin
	}
	return nil
}

// Find loads an order with its items.
func (s *Service) Find(number string) (*catalog.Order, error) {
	var order catalog.Order
	err := s.db.Preload("Items").Where("number = ? AND is_deleted = ?", number, false).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// List returns orders newest first. userID 0 lists every user's orders.
func (s *Service) List(userID uint, status string, p utils.Pagination) ([]catalog.Order, int64, error) {
	q := s.db.Model(&catalog.Order{}).Where("is_deleted = ?", false)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if status != "" {
		q = q.Where("status = ?", strings.ToUpper(status))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []catalog.Order
	err := q.Preload("Items").Order("id desc").Offset(p.Offset).Limit(p.Limit).Find(&orders).Error
	return orders, total, err
}

// AdvanceStatus moves an order along its lifecycle. Payment is only recorded by
// the webhook, so PENDING orders can only be cancelled here.
func (s *Service) AdvanceStatus(number, status string) (*catalog.Order, error) {
	order, err := s.Find(number)
	if err != nil {
		return nil, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == catalog.OrderPaid || !catalog.CanTransitionOrder(order.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, status)
	}

	updates := map[string]interface{}{"status": status}
	if status == catalog.OrderCancelled {
		now := s.now()
		updates["cancelled_at"] = now
		order.CancelledAt = &now
	}
	res := s.db.Model(&catalog.Order{}).Where("id = ? AND status = ?", order.ID, order.Status).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	order.Status = status
	metrics.RecordOrder(status)
	return order, nil
}

// CancelStale cancels pending orders created before now-olderThan.
func (s *Service) CancelStale(olderThan time.Duration) (int64, error) {
	now := s.now()
	res := s.db.Model(&catalog.Order{}).
		Where("status = ? AND created_at < ?", catalog.OrderPending, now.Add(-olderThan)).
		Updates(map[string]interface{}{"status": catalog.OrderCancelled, "cancelled_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("cancel stale orders: %w", res.Error)
	}
	for i := int64(0); i < res.RowsAffected; i++ {
		metrics.RecordOrder(catalog.OrderCancelled)
	}
	return res.RowsAffected, nil
}
