package trainingValidator

import (
	"liftworks/middleware"
	"liftworks/models/training"
	"liftworks/utils"
	"liftworks/validators"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type CourseRequest struct {
	Slug         string `json:"slug" validate:"omitempty,max=120"`
	Title        string `json:"title" validate:"required,min=3,max=200"`
	Description  string `json:"description" validate:"required,min=5"`
	Author       string `json:"author" validate:"max=120"`
	Duration     int64  `json:"duration" validate:"gte=0"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
	Status       string `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,max=500"`
}

type ModuleRequest struct {
	Slug        string `json:"slug" validate:"omitempty,max=120"`
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
	PassPercent int    `json:"pass_percent" validate:"omitempty,min=1,max=100"`
}

type LessonRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	ContentType string `json:"content_type" validate:"omitempty,oneof=TEXT VIDEO IMAGE"`
	Body        string `json:"body"`
	MediaURL    string `json:"media_url" validate:"omitempty,max=500"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
	IsPublished *bool  `json:"is_published"`
}

type PublishRequest struct {
	IsPublished bool `json:"is_published"`
}

// AnswersRequest maps quiz item ids to chosen indexes.
type AnswersRequest struct {
	Answers map[uint]int `json:"answers" validate:"required,min=1,dive,gte=0"`
}

type ExamAnswerRequest struct {
	ItemID uint `json:"item_id" validate:"required"`
	Choice *int `json:"choice" validate:"required,gte=0"`
}

// ExamSubmitRequest may be empty when every answer was saved during the session.
type ExamSubmitRequest struct {
	Answers map[uint]int `json:"answers" validate:"omitempty,dive,gte=0"`
}

type EnrollRequest struct {
	UserID   uint `json:"user_id" validate:"required"`
	CourseID uint `json:"course_id" validate:"required"`
}

// Course validator middleware
func Course() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)
		reqData.Status = strings.ToUpper(strings.TrimSpace(reqData.Status))
		reqData.Slug = utils.Slugify(reqData.Slug)
		if reqData.Slug == "" {
			reqData.Slug = utils.Slugify(reqData.Title)
		}

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// Module validator middleware
func Module() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ModuleRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Slug = utils.Slugify(reqData.Slug)
		if reqData.Slug == "" {
			reqData.Slug = utils.Slugify(reqData.Title)
		}

		if errors := validators.Check(reqData); len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedModule", reqData)
		return c.Next()
	}
}

// Lesson validator middleware
func Lesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LessonRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.ContentType = strings.ToUpper(strings.TrimSpace(reqData.ContentType))
		if reqData.ContentType == "" {
			reqData.ContentType = training.LessonText
		}

		errors := validators.Check(reqData)
		if reqData.ContentType != training.LessonText && strings.TrimSpace(reqData.MediaURL) == "" {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["media_url"] = "media_url is required for VIDEO and IMAGE lessons!"
		}
		if reqData.ContentType == training.LessonText && strings.TrimSpace(reqData.Body) == "" {
			if errors == nil {
				errors = map[string]string{}
			}
			errors["body"] = "body is required for TEXT lessons!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}

func Publish() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedPublish", new(PublishRequest))
	}
}

// QuizAnswers validator middleware
func QuizAnswers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedAnswers", new(AnswersRequest))
	}
}

func ExamAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedExamAnswer", new(ExamAnswerRequest))
	}
}

func ExamSubmit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(ExamSubmitRequest)
		if len(c.Body()) == 0 {
			c.Locals("validatedExamSubmit", reqData)
			return c.Next()
		}
		return validators.Body(c, "validatedExamSubmit", reqData)
	}
}

func Enroll() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return validators.Body(c, "validatedEnroll", new(EnrollRequest))
	}
}
