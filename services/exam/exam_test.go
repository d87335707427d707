package exam

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"liftworks/models"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeIssuer struct {
	issued    []uint
	announced []string
	fail      error
}

func (f *fakeIssuer) Issue(db *gorm.DB, session *training.ExamSession) (*training.Certificate, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	cert := training.Certificate{
		UserID: session.UserID, CourseID: session.CourseID, SessionID: session.ID, Score: session.Score,
		CertificateNumber: fmt.Sprintf("LW-TEST-%d", session.ID), IssuedAt: session.StartedAt, ExpiresAt: session.StartedAt.AddDate(3, 0, 0),
	}
	if err := db.Create(&cert).Error; err != nil {
		return nil, err
	}
	f.issued = append(f.issued, session.ID)
	return &cert, nil
}

func (f *fakeIssuer) Announce(db *gorm.DB, cert *training.Certificate) {
	f.announced = append(f.announced, cert.CertificateNumber)
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	issuer  *fakeIssuer
	now     time.Time
	user    models.User
	course  training.Course
	modules []training.Module
	enroll  training.Enrollment
}

func testSettings() Settings {
	return Settings{QuestionCount: 5, Duration: 45 * time.Minute, Grace: 30 * time.Second, PassPercent: 80}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, issuer: &fakeIssuer{}, now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(db, testSettings(), rand.New(rand.NewSource(42)), f.issuer).
		WithClock(func() time.Time { return f.now })
	f.user = testutil.CreateUser(t, db, "operator@example.com", models.RoleUser)
	f.course, f.modules = testutil.CreateCourse(t, db, "forklift", 2, 4)
	f.enroll = testutil.Enroll(t, db, f.user.ID, f.course.ID)
	testutil.PassModules(t, db, &f.enroll, f.modules)
	return f
}

func reason(t *testing.T, err error) string {
	t.Helper()
	var se *StartError
	require.ErrorAs(t, err, &se)
	return se.Reason
}

func TestStartGeneratesTaggedPaper(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 5)
	assert.False(t, view.Resumed)
	assert.Equal(t, 45*60, view.RemainingSeconds)
	assert.Equal(t, training.SessionInProgress, view.Session.Status)
	assert.Equal(t, f.now.Add(45*time.Minute), view.Session.ExpiresAt)

	seen := map[uint]bool{}
	for _, item := range view.Items {
		assert.NotEmpty(t, item.Tags)
		assert.Contains(t, item.Tags, "safety")
		assert.NotEmpty(t, item.ModuleSlug)
		assert.Len(t, item.Choices, 3)
		assert.False(t, seen[item.ID], "duplicate item in paper")
		seen[item.ID] = true
	}

	var paper training.ExamPaper
	require.NoError(t, f.db.First(&paper, view.Session.PaperID).Error)
	ids, key, err := decodePaper(&paper)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
	assert.Equal(t, []int{1, 1, 1, 1, 1}, key)
}

func TestStartResumesLiveSession(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	_, err = f.svc.SaveAnswer(f.user.ID, first.Session.ID, first.Items[0].ID, 2)
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Minute)
	again, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, again.Resumed)
	assert.Equal(t, first.Session.ID, again.Session.ID)
	assert.Equal(t, 35*60, again.RemainingSeconds)
	assert.Len(t, again.Answers, 1)

	firstIDs := make([]uint, 0, 5)
	for _, it := range first.Items {
		firstIDs = append(firstIDs, it.ID)
	}
	againIDs := make([]uint, 0, 5)
	for _, it := range again.Items {
		againIDs = append(againIDs, it.ID)
	}
	assert.Equal(t, firstIDs, againIDs)
}

func TestConcurrentStartsShareOneSession(t *testing.T) {
	f := newFixture(t)

	var winner *SessionView
	f.svc.beforeCreate = func() {
		f.svc.beforeCreate = nil
		var err error
		winner, err = f.svc.Start(f.user.ID, f.course.ID)
		require.NoError(t, err)
	}

	loser, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.False(t, winner.Resumed)
	assert.True(t, loser.Resumed)
	assert.Equal(t, winner.Session.ID, loser.Session.ID)

	var live, papers int64
	f.db.Model(&training.ExamSession{}).
		Where("enrollment_id = ? AND status = ?", f.enroll.ID, training.SessionInProgress).Count(&live)
	f.db.Model(&training.ExamPaper{}).Count(&papers)
	assert.EqualValues(t, 1, live)
	assert.EqualValues(t, 1, papers)

	var enrollment training.Enrollment
	require.NoError(t, f.db.First(&enrollment, f.enroll.ID).Error)
	assert.Equal(t, 1, enrollment.ExamStarts)
}

func TestStartExpiresOverdueSessionAndDrawsNewPaper(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	f.now = f.now.Add(46 * time.Minute)
	second, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
	assert.False(t, second.Resumed)

	var old training.ExamSession
	require.NoError(t, f.db.First(&old, first.Session.ID).Error)
	assert.Equal(t, training.SessionExpired, old.Status)
}

func TestStartVariesAcrossCalls(t *testing.T) {
	f := newFixture(t)

	orders := map[string]bool{}
	for i := 0; i < 8; i++ {
		u := testutil.CreateUser(t, f.db, "learner"+string(rune('a'+i))+"@example.com", models.RoleUser)
		e := testutil.Enroll(t, f.db, u.ID, f.course.ID)
		testutil.PassModules(t, f.db, &e, f.modules)

		view, err := f.svc.Start(u.ID, f.course.ID)
		require.NoError(t, err)
		key := ""
		for _, it := range view.Items {
			key += string(rune('A'+it.ID)) + ","
		}
		orders[key] = true
	}
	assert.Greater(t, len(orders), 1)
}

func TestStartFailureReasons(t *testing.T) {
	f := newFixture(t)

	stranger := testutil.CreateUser(t, f.db, "stranger@example.com", models.RoleUser)
	_, err := f.svc.Start(stranger.ID, f.course.ID)
	assert.Equal(t, ReasonNotEnrolled, reason(t, err))

	fresh := testutil.CreateUser(t, f.db, "fresh@example.com", models.RoleUser)
	testutil.Enroll(t, f.db, fresh.ID, f.course.ID)
	_, err = f.svc.Start(fresh.ID, f.course.ID)
	assert.Equal(t, ReasonModulesIncomplete, reason(t, err))

	empty := training.Course{Slug: "empty", Title: "Empty", Status: training.CourseActive}
	require.NoError(t, f.db.Create(&empty).Error)
	testutil.Enroll(t, f.db, f.user.ID, empty.ID)
	_, err = f.svc.Start(f.user.ID, empty.ID)
	assert.Equal(t, ReasonNoModules, reason(t, err))

	big := NewService(f.db, Settings{QuestionCount: 20, Duration: time.Hour, PassPercent: 80}, nil, nil)
	_, err = big.Start(f.user.ID, f.course.ID)
	assert.Equal(t, ReasonInsufficientItems, reason(t, err))

	require.NoError(t, f.db.Model(&training.Enrollment{}).Where("id = ?", f.enroll.ID).
		Update("status", training.EnrollmentCompleted).Error)
	_, err = f.svc.Start(f.user.ID, f.course.ID)
	assert.Equal(t, ReasonAlreadyPassed, reason(t, err))
}

func TestStartIgnoresInactiveAndIneligibleItems(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Model(&training.QuizItem{}).Where("module_slug = ?", f.modules[0].Slug).
		Update("is_active", false).Error)
	require.NoError(t, f.db.Model(&training.QuizItem{}).Where("id IN (?)",
		f.db.Model(&training.QuizItem{}).Select("id").Where("module_slug = ?", f.modules[1].Slug).Limit(1)).
		Update("exam_eligible", false).Error)

	// Three eligible items remain for a five item paper.
	_, err := f.svc.Start(f.user.ID, f.course.ID)
	assert.Equal(t, ReasonInsufficientItems, reason(t, err))
}

func TestSaveAnswerValidation(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.svc.SaveAnswer(f.user.ID, view.Session.ID, 99999, 0)
	assert.ErrorIs(t, err, ErrItemNotInPaper)

	_, err = f.svc.SaveAnswer(f.user.ID, view.Session.ID, view.Items[0].ID, 3)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = f.svc.SaveAnswer(f.user.ID+100, view.Session.ID, view.Items[0].ID, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session, err := f.svc.SaveAnswer(f.user.ID, view.Session.ID, view.Items[0].ID, 1)
	require.NoError(t, err)
	assert.Len(t, decodeAnswers(session.Answers), 1)
}

func TestSubmitPassCompletesEnrollment(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	_, err = f.svc.SaveAnswer(f.user.ID, view.Session.ID, view.Items[0].ID, 1)
	require.NoError(t, err)
	answers := map[uint]int{}
	for _, it := range view.Items[1:] {
		answers[it.ID] = 1
	}

	res, err := f.svc.Submit(f.user.ID, view.Session.ID, answers)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, 5, res.Correct)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, []uint{view.Session.ID}, f.issuer.issued)
	assert.Equal(t, []string{res.Certificate.CertificateNumber}, f.issuer.announced)

	var enrollment training.Enrollment
	require.NoError(t, f.db.First(&enrollment, f.enroll.ID).Error)
	assert.Equal(t, training.EnrollmentCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)

	_, err = f.svc.Submit(f.user.ID, view.Session.ID, nil)
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = f.svc.SaveAnswer(f.user.ID, view.Session.ID, view.Items[0].ID, 1)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSubmitFailScoresRoundedDown(t *testing.T) {
	f := newFixture(t)
	settings := testSettings()
	settings.QuestionCount = 6
	svc := NewService(f.db, settings, rand.New(rand.NewSource(7)), f.issuer).WithClock(func() time.Time { return f.now })

	view, err := svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	answers := map[uint]int{}
	for i, it := range view.Items {
		if i < 5 {
			answers[it.ID] = 1
		} else {
			answers[it.ID] = 0
		}
	}
	res, err := svc.Submit(f.user.ID, view.Session.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 83, res.Score)
	assert.True(t, res.Passed)

	// Second attempt is impossible after completion; use a fresh learner for a failing paper.
	u := testutil.CreateUser(t, f.db, "second@example.com", models.RoleUser)
	e := testutil.Enroll(t, f.db, u.ID, f.course.ID)
	testutil.PassModules(t, f.db, &e, f.modules)
	view, err = svc.Start(u.ID, f.course.ID)
	require.NoError(t, err)
	answers = map[uint]int{view.Items[0].ID: 1, view.Items[1].ID: 1, view.Items[2].ID: 2}
	res, err = svc.Submit(u.ID, view.Session.ID, answers)
	require.NoError(t, err)
	assert.Equal(t, 33, res.Score)
	assert.False(t, res.Passed)

	var enrollment training.Enrollment
	require.NoError(t, f.db.First(&enrollment, e.ID).Error)
	assert.NotEqual(t, training.EnrollmentCompleted, enrollment.Status)

	// Another attempt draws a new paper.
	retry, err := svc.Start(u.ID, f.course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, view.Session.ID, retry.Session.ID)
	assert.NotEqual(t, view.Session.PaperID, retry.Session.PaperID)
}

func TestSubmitAfterDeadline(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	// Inside the grace window the submission is accepted.
	f.now = f.now.Add(45*time.Minute + 10*time.Second)
	_, err = f.svc.SaveAnswer(f.user.ID, view.Session.ID, view.Items[0].ID, 1)
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	_, err = f.svc.Submit(f.user.ID, view.Session.ID, map[uint]int{view.Items[0].ID: 1})
	assert.ErrorIs(t, err, ErrSessionExpired)

	var session training.ExamSession
	require.NoError(t, f.db.First(&session, view.Session.ID).Error)
	assert.Equal(t, training.SessionExpired, session.Status)
	assert.Empty(t, f.issuer.issued)

	_, err = f.svc.Submit(f.user.ID, view.Session.ID, nil)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestExpireStaleAndHistory(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)

	n, err := f.svc.ExpireStale()
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.Add(2 * time.Hour)
	n, err = f.svc.ExpireStale()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	history, err := f.svc.History(f.user.ID, f.course.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, view.Session.ID, history[0].ID)
	assert.Equal(t, training.SessionExpired, history[0].Status)
}

func TestSubmitRollsBackWhenCertificateFails(t *testing.T) {
	f := newFixture(t)
	view, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	answers := map[uint]int{}
	for _, it := range view.Items {
		answers[it.ID] = 1
	}

	f.issuer.fail = errors.New("certificate storage unavailable")
	_, err = f.svc.Submit(f.user.ID, view.Session.ID, answers)
	require.Error(t, err)
	assert.Empty(t, f.issuer.announced)

	var session training.ExamSession
	require.NoError(t, f.db.First(&session, view.Session.ID).Error)
	assert.Equal(t, training.SessionInProgress, session.Status)
	var enrollment training.Enrollment
	require.NoError(t, f.db.First(&enrollment, f.enroll.ID).Error)
	assert.NotEqual(t, training.EnrollmentCompleted, enrollment.Status)

	// The learner can resume and submit again once issuance works.
	resumed, err := f.svc.Start(f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, view.Session.ID, resumed.Session.ID)

	f.issuer.fail = nil
	res, err := f.svc.Submit(f.user.ID, view.Session.ID, answers)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.NotNil(t, res.Certificate)

	var certs int64
	f.db.Model(&training.Certificate{}).Where("session_id = ?", view.Session.ID).Count(&certs)
	assert.Equal(t, int64(1), certs)
}
