package userController

import (
	"liftworks/config"
	"liftworks/database"
	"liftworks/middleware"
	"liftworks/models"
	"liftworks/models/enterprise"
	"liftworks/models/training"
	"liftworks/utils"
	userValidator "liftworks/validators/user"

	"github.com/gofiber/fiber/v2"
)

func loadUser(c *fiber.Ctx) (*models.User, error) {
	userID, _ := c.Locals("userId").(uint)
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

// GetProfile returns the caller with enrollment, certificate and org counts.
func GetProfile(c *fiber.Ctx) error {
	user, err := loadUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}
	db := database.Database.Db

	var enrollments, certificates, orgs int64
	db.Model(&training.Enrollment{}).Where("user_id = ? AND is_deleted = ?", user.ID, false).Count(&enrollments)
	db.Model(&training.Certificate{}).Where("user_id = ? AND revoked = ? AND is_deleted = ?", user.ID, false, false).Count(&certificates)
	db.Model(&enterprise.OrgMember{}).Where("user_id = ? AND status = ?", user.ID, enterprise.MemberActive).Count(&orgs)

	var permissions []string
	db.Model(&models.Permission{}).Where("user_id = ? AND is_deleted = ?", user.ID, false).Pluck("permission", &permissions)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched successfully.", fiber.Map{
		"user":         user,
		"permissions":  permissions,
		"enrollments":  enrollments,
		"certificates": certificates,
		"orgs":         orgs,
	})
}

func UpdateProfile(c *fiber.Ctx) error {
	req, ok := c.Locals("validatedProfile").(*userValidator.ProfileRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}
	user, err := loadUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}
	db := database.Database.Db

	updates := map[string]interface{}{
		"name":      req.Name,
		"company":   req.Company,
		"job_title": req.JobTitle,
	}
	if req.Mobile != "" && req.Mobile != user.Mobile {
		var taken int64
		db.Model(&models.User{}).Where("mobile = ? AND id <> ? AND is_deleted = ?", req.Mobile, user.ID, false).Count(&taken)
		if taken > 0 {
			return middleware.JsonResponse(c, fiber.StatusConflict, false, "Mobile number already in use!", nil)
		}
		updates["mobile"] = req.Mobile
		updates["is_mobile_verified"] = false
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update profile!", nil)
	}
	user, _ = loadUser(c)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated successfully.", user)
}

func UploadProfileImage(c *fiber.Ctx) error {
	user, err := loadUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found!", nil)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Image file is required!", nil)
	}
	url, err := utils.StoreImage(file, config.AppConfig.UploadDir, utils.UploadProfileImgs)
	if err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"image": err.Error()})
	}

	if err := database.Database.Db.Model(user).Update("profile_image", url).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save image!", nil)
	}
	user.ProfileImage = url
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile image updated.", user)
}
