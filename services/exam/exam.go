// Package exam generates, resumes and grades timed final exam sessions.
package exam

import (
	"encoding/json"
	"errors"
	"fmt"
	"liftworks/config"
	"liftworks/logger"
	"liftworks/metrics"
	"liftworks/models/training"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Start failure reasons.
const (
	ReasonNotEnrolled       = "not_enrolled"
	ReasonAlreadyPassed     = "already_passed"
	ReasonModulesIncomplete = "modules_incomplete"
	ReasonNoModules         = "no_modules"
	ReasonInsufficientItems = "insufficient_items"
)

var (
	ErrSessionNotFound = errors.New("exam session not found")
	ErrSessionClosed   = errors.New("exam session is no longer in progress")
	ErrSessionExpired  = errors.New("exam session has expired")
	ErrItemNotInPaper  = errors.New("item is not part of this exam")
	ErrInvalidChoice   = errors.New("choice is out of range")
)

// StartError explains why a session could not be generated.
type StartError struct {
	Reason string
	Detail string
}

func (e *StartError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot start exam: %s (%s)", e.Reason, e.Detail)
	}
	return "cannot start exam: " + e.Reason
}

// Settings controls paper size, timing and the pass mark.
type Settings struct {
	QuestionCount int
	Duration      time.Duration
	Grace         time.Duration
	PassPercent   int
}

// SettingsFromConfig reads the EXAM_* values.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		QuestionCount: cfg.ExamQuestionCount,
		Duration:      cfg.ExamDuration,
		Grace:         cfg.ExamGrace,
		PassPercent:   cfg.ExamPassPercent,
	}
}

// CertificateIssuer creates the certificate inside the submit transaction and
// announces it once that transaction has committed.
type CertificateIssuer interface {
	Issue(db *gorm.DB, session *training.ExamSession) (*training.Certificate, error)
	Announce(db *gorm.DB, cert *training.Certificate)
}

// Item is a quiz item as shown to the candidate, without its answer.
type Item struct {
	ID         uint     `json:"id"`
	ModuleSlug string   `json:"module_slug"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
	Tags       []string `json:"tags"`
}

// SessionView is a session plus its items and remaining time.
type SessionView struct {
	Session          *training.ExamSession `json:"session"`
	Items            []Item                `json:"items"`
	Answers          map[string]int        `json:"answers"`
	RemainingSeconds int                   `json:"remaining_seconds"`
	Resumed          bool                  `json:"resumed"`
}

// Result is the graded outcome of a submission.
type Result struct {
	Session     *training.ExamSession `json:"session"`
	Correct     int                   `json:"correct"`
	Total       int                   `json:"total"`
	Score       int                   `json:"score"`
	Passed      bool                  `json:"passed"`
	Certificate *training.Certificate `json:"certificate,omitempty"`
}

// Service runs exam sessions against a database.
type Service struct {
	db       *gorm.DB
	settings Settings
	issuer   CertificateIssuer
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	// beforeCreate runs between the start checks and the session insert.
	beforeCreate func()
}

// errStartRaced means another Start for the same enrollment committed first.
var errStartRaced = errors.New("concurrent exam start")

// NewService builds a Service. rng drives paper sampling; nil seeds from the clock.
func NewService(db *gorm.DB, settings Settings, rng *rand.Rand, issuer CertificateIssuer) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{db: db, settings: settings, issuer: issuer, now: time.Now, rng: rng}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start resumes the user's live session for the course or generates a new one.
// Concurrent starts for one enrollment yield a single session.
func (s *Service) Start(userID, courseID uint) (*SessionView, error) {
	view, err := s.start(userID, courseID)
	if errors.Is(err, errStartRaced) {
		// The winner's session is live now, so this resumes it.
		view, err = s.start(userID, courseID)
	}
	return view, err
}

func (s *Service) start(userID, courseID uint) (*SessionView, error) {
	var enrollment training.Enrollment
	err := s.db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &StartError{Reason: ReasonNotEnrolled}
	}
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment.Status == training.EnrollmentCompleted {
		return nil, &StartError{Reason: ReasonAlreadyPassed}
	}

	now := s.now()
	var live training.ExamSession
	err = s.db.Where("user_id = ? AND course_id = ? AND status = ? AND is_deleted = false",
		userID, courseID, training.SessionInProgress).Order("id desc").First(&live).Error
	switch {
	case err == nil:
		if now.Before(live.ExpiresAt.Add(s.settings.Grace)) {
			metrics.RecordExamSession("resumed")
			return s.view(&live, true)
		}
		if err := s.expire(&live); err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load live session: %w", err)
	}

	var modules []training.Module
	if err := s.db.Where("course_id = ? AND is_deleted = false", courseID).
		Order("order_index asc").Find(&modules).Error; err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	if len(modules) == 0 {
		return nil, &StartError{Reason: ReasonNoModules}
	}

	moduleIDs := make([]uint, 0, len(modules))
	slugs := make([]string, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
		slugs = append(slugs, m.Slug)
	}

	var passed int64
	if err := s.db.Model(&training.ModuleProgress{}).
		Where("enrollment_id = ? AND module_id IN ? AND passed = ?", enrollment.ID, moduleIDs, true).
		Count(&passed).Error; err != nil {
		return nil, fmt.Errorf("count passed modules: %w", err)
	}
	if int(passed) < len(modules) {
		return nil, &StartError{
			Reason: ReasonModulesIncomplete,
			Detail: fmt.Sprintf("%d of %d modules passed", passed, len(modules)),
		}
	}

	var pool []training.QuizItem
	if err := s.db.Where("module_slug IN ? AND exam_eligible = ? AND is_active = ? AND is_deleted = false",
		slugs, true, true).Order("id asc").Find(&pool).Error; err != nil {
		return nil, fmt.Errorf("load quiz items: %w", err)
	}
	n := s.settings.QuestionCount
	if n <= 0 || len(pool) < n {
		return nil, &StartError{
			Reason: ReasonInsufficientItems,
			Detail: fmt.Sprintf("need %d eligible items, have %d", n, len(pool)),
		}
	}

	picked := s.sample(pool, n)
	itemIDs := make([]uint, n)
	answerKey := make([]int, n)
	for i, item := range picked {
		itemIDs[i] = item.ID
		answerKey[i] = item.AnswerIndex
	}
	idsJSON, _ := json.Marshal(itemIDs)
	keyJSON, _ := json.Marshal(answerKey)

	session := training.ExamSession{
		UserID:       userID,
		CourseID:     courseID,
		EnrollmentID: enrollment.ID,
		Status:       training.SessionInProgress,
		StartedAt:    now,
		ExpiresAt:    now.Add(s.settings.Duration),
		Answers:      datatypes.JSON("{}"),
		Total:        n,
	}
	if s.beforeCreate != nil {
		s.beforeCreate()
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&training.Enrollment{}).
			Where("id = ? AND exam_starts = ?", enrollment.ID, enrollment.ExamStarts).
			UpdateColumn("exam_starts", gorm.Expr("exam_starts + 1"))
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return errStartRaced
		}

		paper := training.ExamPaper{
			UserID:    userID,
			CourseID:  courseID,
			ItemIDs:   datatypes.JSON(idsJSON),
			AnswerKey: datatypes.JSON(keyJSON),
		}
		if err := tx.Create(&paper).Error; err != nil {
			return err
		}
		session.PaperID = paper.ID
		return tx.Create(&session).Error
	})
	if errors.Is(err, errStartRaced) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("create exam session: %w", err)
	}

	metrics.RecordExamSession("started")
	logger.Log.Infow("exam session started", "user_id", userID, "course_id", courseID,
		"session_id", session.ID, "items", n)

	view := &SessionView{
		Session:          &session,
		Items:            toItems(picked),
		Answers:          map[string]int{},
		RemainingSeconds: int(s.settings.Duration.Seconds()),
	}
	return view, nil
}

// sample shuffles a copy of pool with Fisher-Yates and returns the first n.
func (s *Service) sample(pool []training.QuizItem, n int) []training.QuizItem {
	items := make([]training.QuizItem, len(pool))
	copy(items, pool)

	s.mu.Lock()
	for i := len(items) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
	s.mu.Unlock()

	return items[:n]
}

// Get returns the user's session with its items.
func (s *Service) Get(userID, sessionID uint) (*SessionView, error) {
	session, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(session, false)
}

// SaveAnswer records one answer on a live session.
func (s *Service) SaveAnswer(userID, sessionID, itemID uint, choice int) (*training.ExamSession, error) {
	session, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(session); err != nil {
		return nil, err
	}

	paper, err := s.paper(session.PaperID)
	if err != nil {
		return nil, err
	}
	ids, _, err := decodePaper(paper)
	if err != nil {
		return nil, err
	}
	if indexOf(ids, itemID) < 0 {
		return nil, ErrItemNotInPaper
	}

	var item training.QuizItem
	if err := s.db.First(&item, itemID).Error; err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	var choices []string
	_ = json.Unmarshal(item.Choices, &choices)
	if choice < 0 || choice >= len(choices) {
		return nil, ErrInvalidChoice
	}

	answers := decodeAnswers(session.Answers)
	answers[strconv.FormatUint(uint64(itemID), 10)] = choice
	raw, _ := json.Marshal(answers)

	res := s.db.Model(&training.ExamSession{}).
		Where("id = ? AND status = ?", session.ID, training.SessionInProgress).
		Update("answers", datatypes.JSON(raw))
	if res.Error != nil {
		return nil, fmt.Errorf("save answer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrSessionClosed
	}
	session.Answers = datatypes.JSON(raw)
	return session, nil
}

// Submit grades the session. answers are merged over previously saved ones.
func (s *Service) Submit(userID, sessionID uint, answers map[uint]int) (*Result, error) {
	session, err := s.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLive(session); err != nil {
		return nil, err
	}

	paper, err := s.paper(session.PaperID)
	if err != nil {
		return nil, err
	}
	ids, key, err := decodePaper(paper)
	if err != nil {
		return nil, err
	}

	merged := decodeAnswers(session.Answers)
	for itemID, choice := range answers {
		if indexOf(ids, itemID) < 0 {
			return nil, ErrItemNotInPaper
		}
		merged[strconv.FormatUint(uint64(itemID), 10)] = choice
	}

	correct := 0
	for i, id := range ids {
		if choice, ok := merged[strconv.FormatUint(uint64(id), 10)]; ok && choice == key[i] {
			correct++
		}
	}
	total := len(ids)
	score := 0
	if total > 0 {
		score = correct * 100 / total
	}
	passed := score >= s.settings.PassPercent
	now := s.now()
	raw, _ := json.Marshal(merged)

	graded := *session
	graded.Status = training.SessionSubmitted
	graded.SubmittedAt = &now
	graded.Answers = datatypes.JSON(raw)
	graded.Correct, graded.Total, graded.Score, graded.Passed = correct, total, score, passed

	// A passing submission commits only together with its certificate.
	var cert *training.Certificate
	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&training.ExamSession{}).
			Where("id = ? AND status = ?", session.ID, training.SessionInProgress).
			Updates(map[string]interface{}{
				"status":       training.SessionSubmitted,
				"submitted_at": now,
				"answers":      datatypes.JSON(raw),
				"correct":      correct,
				"total":        total,
				"score":        score,
				"passed":       passed,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionClosed
		}
		if !passed {
			return nil
		}
		if err := tx.Model(&training.Enrollment{}).Where("id = ?", session.EnrollmentID).
			Updates(map[string]interface{}{
				"status":       training.EnrollmentCompleted,
				"progress":     100,
				"completed_at": now,
			}).Error; err != nil {
			return err
		}
		if s.issuer == nil {
			return nil
		}
		issued, err := s.issuer.Issue(tx, &graded)
		if err != nil {
			return fmt.Errorf("issue certificate: %w", err)
		}
		cert = issued
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return nil, err
		}
		logger.Log.Errorw("submit exam", "session_id", session.ID, "passed", passed, "error", err)
		return nil, fmt.Errorf("submit exam: %w", err)
	}

	result := &Result{Session: &graded, Correct: correct, Total: total, Score: score, Passed: passed, Certificate: cert}
	if passed {
		metrics.RecordExamSession("passed")
		if cert != nil {
			s.issuer.Announce(s.db, cert)
		}
	} else {
		metrics.RecordExamSession("failed")
	}
	logger.Log.Infow("exam submitted", "session_id", session.ID, "score", score, "passed", passed)
	return result, nil
}

// History lists the user's sessions for a course, newest first.
func (s *Service) History(userID, courseID uint) ([]training.ExamSession, error) {
	var sessions []training.ExamSession
	err := s.db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		Order("id desc").Find(&sessions).Error
	return sessions, err
}

// ExpireStale marks in-progress sessions past deadline plus grace as expired.
func (s *Service) ExpireStale() (int64, error) {
	cutoff := s.now().Add(-s.settings.Grace)
	res := s.db.Model(&training.ExamSession{}).
		Where("status = ? AND expires_at < ?", training.SessionInProgress, cutoff).
		Update("status", training.SessionExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire sessions: %w", res.Error)
	}
	for i := int64(0); i < res.RowsAffected; i++ {
		metrics.RecordExamSession("expired")
	}
	return res.RowsAffected, nil
}

func (s *Service) load(userID, sessionID uint) (*training.ExamSession, error) {
	var session training.ExamSession
	err := s.db.Where("id = ? AND user_id = ? AND is_deleted = false", sessionID, userID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

// checkLive rejects closed sessions and expires overdue ones.
func (s *Service) checkLive(session *training.ExamSession) error {
	switch session.Status {
	case training.SessionInProgress:
	case training.SessionExpired:
		return ErrSessionExpired
	default:
		return ErrSessionClosed
	}
	if s.now().After(session.ExpiresAt.Add(s.settings.Grace)) {
		if err := s.expire(session); err != nil {
			return err
		}
		return ErrSessionExpired
	}
	return nil
}

func (s *Service) expire(session *training.ExamSession) error {
	err := s.db.Model(&training.ExamSession{}).
		Where("id = ? AND status = ?", session.ID, training.SessionInProgress).
		Update("status", training.SessionExpired).Error
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	session.Status = training.SessionExpired
	metrics.RecordExamSession("expired")
	return nil
}

func (s *Service) paper(id uint) (*training.ExamPaper, error) {
	var paper training.ExamPaper
	if err := s.db.First(&paper, id).Error; err != nil {
		return nil, fmt.Errorf("load exam paper: %w", err)
	}
	return &paper, nil
}

func (s *Service) view(session *training.ExamSession, resumed bool) (*SessionView, error) {
	paper, err := s.paper(session.PaperID)
	if err != nil {
		return nil, err
	}
	ids, _, err := decodePaper(paper)
	if err != nil {
		return nil, err
	}

	var rows []training.QuizItem
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load paper items: %w", err)
	}
	byID := make(map[uint]training.QuizItem, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	ordered := make([]training.QuizItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
		}
	}

	remaining := int(session.ExpiresAt.Sub(s.now()).Seconds())
	if remaining < 0 || session.Status != training.SessionInProgress {
		remaining = 0
	}
	return &SessionView{
		Session:          session,
		Items:            toItems(ordered),
		Answers:          decodeAnswers(session.Answers),
		RemainingSeconds: remaining,
		Resumed:          resumed,
	}, nil
}

func toItems(items []training.QuizItem) []Item {
	out := make([]Item, 0, len(items))
	for _, q := range items {
		var choices []string
		_ = json.Unmarshal(q.Choices, &choices)
		out = append(out, Item{
			ID:         q.ID,
			ModuleSlug: q.ModuleSlug,
			Prompt:     q.Prompt,
			Choices:    choices,
			Tags:       q.TagList(),
		})
	}
	return out
}

func decodePaper(p *training.ExamPaper) ([]uint, []int, error) {
	var ids []uint
	var key []int
	if err := json.Unmarshal(p.ItemIDs, &ids); err != nil {
		return nil, nil, fmt.Errorf("decode paper items: %w", err)
	}
	if err := json.Unmarshal(p.AnswerKey, &key); err != nil {
		return nil, nil, fmt.Errorf("decode answer key: %w", err)
	}
	if len(ids) != len(key) {
		return nil, nil, errors.New("exam paper is corrupt")
	}
	return ids, key, nil
}

func decodeAnswers(raw datatypes.JSON) map[string]int {
	answers := map[string]int{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &answers)
	}
	return answers
}

func indexOf(ids []uint, id uint) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
