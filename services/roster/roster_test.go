package roster

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"testing"
	"time"

	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func passEval(at time.Time) *enterprise.Evaluation {
	return &enterprise.Evaluation{Result: enterprise.EvalPass, EvaluatedAt: at}
}

func validCert() *training.Certificate {
	issued := now.AddDate(-1, 0, 0)
	return &training.Certificate{IssuedAt: issued, ExpiresAt: issued.AddDate(3, 0, 0)}
}

func TestAuthorized(t *testing.T) {
	revoked := validCert()
	revoked.Revoked = true
	expired := validCert()
	expired.ExpiresAt = now.Add(-time.Hour)

	tests := []struct {
		name string
		cert *training.Certificate
		eval *enterprise.Evaluation
		want bool
	}{
		{"valid certificate and recent pass", validCert(), passEval(now.AddDate(0, -2, 0)), true},
		{"no certificate", nil, passEval(now), false},
		{"no evaluation", validCert(), nil, false},
		{"revoked certificate", revoked, passEval(now), false},
		{"expired certificate", expired, passEval(now), false},
		{"failed evaluation", validCert(), &enterprise.Evaluation{Result: enterprise.EvalFail, EvaluatedAt: now}, false},
		{"evaluation older than validity span", validCert(), passEval(now.AddDate(-3, 0, -1)), false},
		{"evaluation dated in the future", validCert(), passEval(now.Add(time.Hour)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorized(tt.cert, tt.eval, now))
		})
	}
}

func TestCreateEvaluationRequiresMember(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@acme.example", models.RoleUser)
	outsider := testutil.CreateUser(t, db, "outsider@example.com", models.RoleUser)
	learner := testutil.CreateUser(t, db, "op@acme.example", models.RoleUser)
	org := testutil.CreateOrg(t, db, "Acme", owner)
	testutil.AddMember(t, db, org.ID, learner.ID, enterprise.RoleLearner)

	_, err := CreateEvaluation(db, org.ID, owner.ID, EvaluationInput{LearnerID: outsider.ID, Result: "PASS"})
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = CreateEvaluation(db, org.ID, owner.ID, EvaluationInput{LearnerID: learner.ID, Result: "MAYBE"})
	assert.ErrorIs(t, err, ErrInvalidResult)

	eval, err := CreateEvaluation(db, org.ID, owner.ID, EvaluationInput{
		LearnerID: learner.ID, EquipmentType: " Sit-down counterbalance ", Result: "pass", EvaluatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, enterprise.EvalPass, eval.Result)
	assert.Equal(t, "Sit-down counterbalance", eval.EquipmentType)

	evals, err := Evaluations(db, org.ID, learner.ID)
	require.NoError(t, err)
	assert.Len(t, evals, 1)
}

func TestBuildRosterAndCSV(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@acme.example", models.RoleUser)
	learner := testutil.CreateUser(t, db, "op@acme.example", models.RoleUser)
	db.Model(&learner).Update("name", "Alex Operator")
	org := testutil.CreateOrg(t, db, "Acme", owner)
	testutil.AddMember(t, db, org.ID, learner.ID, enterprise.RoleLearner)
	course, _ := testutil.CreateCourse(t, db, "forklift", 1, 1)

	e := testutil.Enroll(t, db, learner.ID, course.ID)
	require.NoError(t, db.Model(&e).Updates(map[string]interface{}{"org_id": org.ID, "status": training.EnrollmentCompleted, "progress": 100}).Error)
	require.NoError(t, db.Create(&training.ExamSession{
		UserID: learner.ID, CourseID: course.ID, EnrollmentID: e.ID, PaperID: 1,
		Status: training.SessionSubmitted, StartedAt: now, ExpiresAt: now, Score: 92, Passed: true,
	}).Error)
	cert := validCert()
	cert.UserID, cert.CourseID, cert.CertificateNumber = learner.ID, course.ID, "LW-2025-ABCDEF12"
	require.NoError(t, db.Create(cert).Error)
	_, err := CreateEvaluation(db, org.ID, owner.ID, EvaluationInput{LearnerID: learner.ID, Result: "PASS", EvaluatedAt: now.AddDate(0, -1, 0)})
	require.NoError(t, err)

	entries, err := Build(db, org.ID, now)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var op Entry
	for _, entry := range entries {
		if entry.UserID == learner.ID {
			op = entry
		}
	}
	assert.Equal(t, "Alex Operator", op.Name)
	assert.Equal(t, course.ID, op.CourseID)
	assert.Equal(t, training.EnrollmentCompleted, op.EnrollmentStatus)
	require.NotNil(t, op.LatestExamScore)
	assert.Equal(t, 92, *op.LatestExamScore)
	assert.Equal(t, "LW-2025-ABCDEF12", op.CertificateNumber)
	assert.Equal(t, enterprise.EvalPass, op.EvaluationResult)
	assert.True(t, op.Authorized)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Contains(t, records[1:], []string{
		strconv.FormatUint(uint64(learner.ID), 10), "Alex Operator", "op@acme.example", enterprise.RoleLearner, course.Title, training.EnrollmentCompleted,
		"100", "92", "LW-2025-ABCDEF12", cert.ExpiresAt.Format("2006-01-02"), enterprise.EvalPass,
		now.AddDate(0, -1, 0).Format("2006-01-02"), "true",
	})
}
