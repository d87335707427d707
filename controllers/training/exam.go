package trainingController

import (
	"liftworks/middleware"
	"liftworks/validators"
	trainingValidator "liftworks/validators/training"

	"github.com/gofiber/fiber/v2"
)

// StartExam resumes the caller's live session or draws a new paper.
func StartExam(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	courseID, _ := validators.ParamID(c, "course_id")

	view, err := NewExam().Start(userID, courseID)
	if err != nil {
		return trainingError(c, err)
	}

	status, message := fiber.StatusCreated, "Exam started. Good luck!"
	if view.Resumed {
		status, message = fiber.StatusOK, "Exam resumed."
	}
	return middleware.JsonResponse(c, status, true, message, view)
}

func GetExamSession(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	sessionID, _ := validators.ParamID(c, "session_id")

	view, err := NewExam().Get(userID, sessionID)
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam session fetched successfully.", view)
}

func SaveExamAnswer(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedExamAnswer").(*trainingValidator.ExamAnswerRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userID, _ := c.Locals("userId").(uint)
	sessionID, _ := validators.ParamID(c, "session_id")

	session, err := NewExam().SaveAnswer(userID, sessionID, req.ItemID, *req.Choice)
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer saved.", fiber.Map{
		"session_id": session.ID,
		"expires_at": session.ExpiresAt,
	})
}

func SubmitExam(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedExamSubmit").(*trainingValidator.ExamSubmitRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	userID, _ := c.Locals("userId").(uint)
	sessionID, _ := validators.ParamID(c, "session_id")

	result, err := NewExam().Submit(userID, sessionID, req.Answers)
	if err != nil {
		return trainingError(c, err)
	}

	message := "Exam submitted. You did not reach the pass mark this time."
	if result.Passed {
		message = "Congratulations, you passed the exam!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
}

func ExamHistory(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	courseID, _ := validators.ParamID(c, "course_id")

	sessions, err := NewExam().History(userID, courseID)
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Exam history fetched successfully.", sessions)
}
