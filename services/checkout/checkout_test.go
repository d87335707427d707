package checkout

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"liftworks/config"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/testutil"
	"liftworks/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "whsec_test"

type fakeGateway struct {
	requests []utils.CheckoutRequest
	err      error
}

func (g *fakeGateway) CreateCheckoutSession(req utils.CheckoutRequest) (*utils.CheckoutSession, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &utils.CheckoutSession{ID: "cs_" + req.OrderNumber, URL: "https://pay.example/" + req.OrderNumber}, nil
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	gateway *fakeGateway
	now     time.Time
	buyer   models.User
	charger catalog.Part
	course  training.Course
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := *config.AppConfig
	cfg.PaymentWebhookSecret = secret

	f := &fixture{db: db, gateway: &fakeGateway{}, now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
	f.svc = NewService(db, &cfg, f.gateway).WithClock(func() time.Time { return f.now })
	f.buyer = testutil.CreateUser(t, db, "buyer@example.com", models.RoleUser)
	f.charger = f.part(t, "CHG-36V-75A", 10000, 5)
	f.course, _ = testutil.CreateCourse(t, db, "forklift", 2, 2)
	return f
}

func (f *fixture) part(t *testing.T, sku string, price int64, stock int) catalog.Part {
	t.Helper()
	p := catalog.Part{SKU: sku, Name: "Part " + sku, PartType: catalog.TypeCharger, PriceCents: price, StockQty: stock, IsActive: true}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	var p catalog.Part
	require.NoError(t, f.db.First(&p, id).Error)
	return p.StockQty
}

func event(kind, number string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","type":%q,"data":{"object":{"id":"cs_live","metadata":{"order_number":%q}}}}`, kind, number))
}

func TestPricingCompute(t *testing.T) {
	p := Pricing{TaxRate: 0.0825, FlatShippingCents: 1495, FreeShippingThresholdCents: 20000}

	tests := []struct {
		name     string
		subtotal int64
		physical bool
		want     Totals
	}{
		{"below threshold", 10000, true, Totals{10000, 825, 1495, 12320}},
		{"at threshold ships free", 20000, true, Totals{20000, 1650, 0, 21650}},
		{"training only", 5995, false, Totals{5995, 495, 0, 6490}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Compute(tt.subtotal, tt.physical))
		})
	}
}

func TestCreateOrderPricesFromCatalog(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(f.buyer, Cart{
		Items: []LineRequest{{SKU: "chg-36v-75a", Quantity: 2}, {SKU: "CHG-36V-75A", Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, catalog.OrderPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, int64(30000), order.SubtotalCents)
	assert.Equal(t, int64(2475), order.TaxCents)
	assert.Zero(t, order.ShippingCents)
	assert.Equal(t, int64(32475), order.TotalCents)

	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, order.Number, f.gateway.requests[0].OrderNumber)

	saved, err := f.svc.Find(order.Number)
	require.NoError(t, err)
	assert.Equal(t, "cs_"+order.Number, saved.PaymentSessionID)
	assert.Equal(t, "https://pay.example/"+order.Number, saved.PaymentURL)
}

func TestCreateOrderKeepsOrderWhenPaymentFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("processor down")

	order, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
	require.NoError(t, err)
	assert.Empty(t, order.PaymentURL)
	assert.Equal(t, int64(1495), order.ShippingCents)
}

func TestCreateOrderRejections(t *testing.T) {
	f := newFixture(t)
	learner := testutil.CreateUser(t, f.db, "learner@example.com", models.RoleUser)
	org := testutil.CreateOrg(t, f.db, "Acme", f.buyer)
	testutil.AddMember(t, f.db, org.ID, learner.ID, enterprise.RoleLearner)
	enrolled := testutil.CreateUser(t, f.db, "enrolled@example.com", models.RoleUser)
	testutil.Enroll(t, f.db, enrolled.ID, f.course.ID)

	tests := []struct {
		name string
		user models.User
		cart Cart
		want error
	}{
		{"empty", f.buyer, Cart{}, ErrEmptyCart},
		{"unknown sku", f.buyer, Cart{Items: []LineRequest{{SKU: "NOPE", Quantity: 1}}}, ErrUnknownSKU},
		{"out of stock", f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 6}}}, ErrOutOfStock},
		{"unknown course", f.buyer, Cart{Courses: []CourseRequest{{CourseID: 999}}}, ErrUnknownCourse},
		{"learner buying seats", learner, Cart{Courses: []CourseRequest{{CourseID: f.course.ID, Seats: 3, OrgID: &org.ID}}}, ErrNotOrgAdmin},
		{"already enrolled", enrolled, Cart{Courses: []CourseRequest{{CourseID: f.course.ID}}}, ErrAlreadyEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(tt.user, tt.cart)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&catalog.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"ping"}`)
	now := time.Unix(1_780_000_000, 0)
	good := Sign(body, secret, now)

	tests := []struct {
		name   string
		header string
		at     time.Time
		want   error
	}{
		{"valid", good, now, nil},
		{"within tolerance", good, now.Add(4 * time.Minute), nil},
		{"stale", good, now.Add(6 * time.Minute), ErrStaleSignature},
		{"wrong secret", Sign(body, "other", now), now, ErrBadSignature},
		{"missing", "", now, ErrMissingSignature},
		{"no v1", "t=1780000000", now, ErrMissingSignature},
		{"second v1 matches", "t=1780000000,v1=deadbeef," + good[len("t=1780000000,"):], now, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.header, body, secret, tt.at, DefaultTolerance)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	assert.ErrorIs(t, VerifySignature(good, []byte(`{"type":"tampered"}`), secret, now, DefaultTolerance), ErrBadSignature)
}

func TestWebhookFulfilsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	org := testutil.CreateOrg(t, f.db, "Acme", f.buyer)

	order, err := f.svc.CreateOrder(f.buyer, Cart{
		Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 2}},
		Courses: []CourseRequest{
			{CourseID: f.course.ID},
			{CourseID: f.course.ID, Seats: 4, OrgID: &org.ID},
		},
	})
	require.NoError(t, err)

	body := event(EventCompleted, order.Number)
	outcome, err := f.svc.HandleWebhook(Sign(body, secret, f.now), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, outcome)

	outcome, err = f.svc.HandleWebhook(Sign(body, secret, f.now), body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	paid, err := f.svc.Find(order.Number)
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderPaid, paid.Status)
	assert.NotNil(t, paid.PaidAt)
	assert.NotNil(t, paid.FulfilledAt)
	assert.Equal(t, "cs_live", paid.PaymentSessionID)

	assert.Equal(t, 3, f.stock(t, f.charger.ID))

	var pool enterprise.OrgSeat
	require.NoError(t, f.db.Where("org_id = ? AND course_id = ?", org.ID, f.course.ID).First(&pool).Error)
	assert.Equal(t, 4, pool.AllocatedSeats)

	var enrollments []training.Enrollment
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", f.buyer.ID, f.course.ID).Find(&enrollments).Error)
	require.Len(t, enrollments, 1)
	assert.Equal(t, training.SourcePurchase, enrollments[0].Source)
	assert.Equal(t, 2, enrollments[0].TotalModules)
}

func TestFulfilFloorsStockAtZero(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 4}}})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&catalog.Part{}).Where("id = ?", f.charger.ID).Update("stock_qty", 1).Error)

	outcome, err := f.svc.Fulfil(order.Number, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFulfilled, outcome)
	assert.Equal(t, 0, f.stock(t, f.charger.ID))
}

func TestWebhookRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	body := event(EventCompleted, "LWO-NOPE")

	_, err := f.svc.HandleWebhook("t=1,v1=00", body)
	assert.ErrorIs(t, err, ErrStaleSignature)

	_, err = f.svc.HandleWebhook(Sign(body, secret, f.now), body)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.HandleEvent([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	outcome, err := f.svc.HandleEvent([]byte(`{"type":"charge.refunded"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestExpiredSessionCancelsOrder(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
	require.NoError(t, err)

	outcome, err := f.svc.HandleEvent(event(EventExpired, order.Number))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)

	outcome, err = f.svc.HandleEvent(event(EventCompleted, order.Number))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 5, f.stock(t, f.charger.ID))
}

func TestCancelStale(t *testing.T) {
	f := newFixture(t)
	old, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&catalog.Order{}).Where("id = ?", old.ID).
		Update("created_at", f.now.Add(-30*time.Hour)).Error)
	fresh, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&catalog.Order{}).Where("id = ?", fresh.ID).
		Update("created_at", f.now.Add(-time.Hour)).Error)

	n, err := f.svc.CancelStale(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.Find(old.Number)
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderCancelled, got.Status)
	got, err = f.svc.Find(fresh.Number)
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderPending, got.Status)
}

func TestAdvanceStatus(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.CreateOrder(f.buyer, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
	require.NoError(t, err)

	_, err = f.svc.AdvanceStatus(order.Number, catalog.OrderShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.AdvanceStatus(order.Number, catalog.OrderPaid)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.Fulfil(order.Number, "")
	require.NoError(t, err)

	got, err := f.svc.AdvanceStatus(order.Number, "shipped")
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderShipped, got.Status)
	got, err = f.svc.AdvanceStatus(order.Number, catalog.OrderDelivered)
	require.NoError(t, err)
	assert.Equal(t, catalog.OrderDelivered, got.Status)

	_, err = f.svc.AdvanceStatus("LWO-MISSING", catalog.OrderShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	other := testutil.CreateUser(t, f.db, "other@example.com", models.RoleUser)
	for _, u := range []models.User{f.buyer, f.buyer, other} {
		_, err := f.svc.CreateOrder(u, Cart{Items: []LineRequest{{SKU: f.charger.SKU, Quantity: 1}}})
		require.NoError(t, err)
	}
	page := utils.Pagination{Page: 1, Limit: 10}

	mine, total, err := f.svc.List(f.buyer.ID, "", page)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)
	assert.NotEmpty(t, mine[0].Items)

	all, total, err := f.svc.List(0, "pending", page)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)
}
