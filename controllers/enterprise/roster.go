package enterpriseController

import (
	"liftworks/database"
	"liftworks/middleware"
	"liftworks/services/roster"
	enterpriseValidator "liftworks/validators/enterprise"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

func Roster(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)

	entries, err := roster.Build(database.Database.Db, orgID, time.Now())
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Roster fetched successfully.", entries)
}

func ExportRoster(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)

	entries, err := roster.Build(database.Database.Db, orgID, time.Now())
	if err != nil {
		return enterpriseError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="roster-`+strconv.FormatUint(uint64(orgID), 10)+`.csv"`)
	return roster.WriteCSV(c, entries)
}

func CreateEvaluation(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedEvaluation").(*enterpriseValidator.EvaluationRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	orgID, _ := orgFromLocals(c)
	userID, _ := c.Locals("userId").(uint)

	in := roster.EvaluationInput{
		LearnerID:     req.LearnerID,
		EquipmentType: req.EquipmentType,
		Result:        req.Result,
		Notes:         req.Notes,
	}
	if req.EvaluatedAt != nil {
		in.EvaluatedAt = *req.EvaluatedAt
	}
	eval, err := roster.CreateEvaluation(database.Database.Db, orgID, userID, in)
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Evaluation recorded.", eval)
}

func ListEvaluations(c *fiber.Ctx) error {
	orgID, _ := orgFromLocals(c)
	learnerID, _ := strconv.Atoi(c.Query("learner_id", "0"))
	if learnerID < 0 {
		learnerID = 0
	}

	evals, err := roster.Evaluations(database.Database.Db, orgID, uint(learnerID))
	if err != nil {
		return enterpriseError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Evaluations fetched successfully.", evals)
}
