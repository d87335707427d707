package trainingController

import (
	"liftworks/database"
	"liftworks/logger"
	"liftworks/middleware"
	"liftworks/models/training"
	"liftworks/services/certificate"
	"liftworks/utils"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func MyCertificates(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)

	var certs []training.Certificate
	if err := database.Database.Db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("issued_at desc").Find(&certs).Error; err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully.", certs)
}

// DownloadCertificate streams the PDF to the holder, a site admin or an admin of the holder's org.
func DownloadCertificate(c *fiber.Ctx) error {
	userID, _ := c.Locals("userId").(uint)
	role, _ := c.Locals("role").(string)
	db := database.Database.Db

	cert, err := certificate.Find(db, strings.ToUpper(c.Params("number")))
	if err != nil {
		return trainingError(c, err)
	}
	allowed, err := certificate.CanDownload(db, cert, userID, role)
	if err != nil {
		return trainingError(c, err)
	}
	if !allowed {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You cannot download this certificate!", nil)
	}

	path, err := NewCertificates().PDFPath(db, cert)
	if err != nil {
		logger.Log.Errorw("certificate render failed", "number", cert.CertificateNumber, "error", err)
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to render certificate!", nil)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+cert.CertificateNumber+`.pdf"`)
	return c.SendFile(path)
}

func VerifyCertificate(c *fiber.Ctx) error {
	v, err := NewCertificates().Verify(database.Database.Db, strings.ToUpper(c.Params("number")))
	if err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verified.", v)
}

func AdminListCertificates(c *fiber.Ctx) error {
	page := utils.ParsePagination(c, 20, 100)
	q := database.Database.Db.Model(&training.Certificate{}).Where("is_deleted = ?", false)
	if c.Query("revoked") == "true" {
		q = q.Where("revoked = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return trainingError(c, err)
	}
	var certs []training.Certificate
	if err := q.Order("issued_at desc").Offset(page.Offset).Limit(page.Limit).Find(&certs).Error; err != nil {
		return trainingError(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully.", fiber.Map{
		"certificates": certs,
		"pagination":   utils.PageMeta(page, total),
	})
}

func AdminRevokeCertificate(c *fiber.Ctx) error {
	cert, err := NewCertificates().Revoke(database.Database.Db, strings.ToUpper(c.Params("number")))
	if err != nil {
		return trainingError(c, err)
	}
	logger.Log.Infow("certificate revoked", "number", cert.CertificateNumber, "by", c.Locals("userId"))
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate revoked.", cert)
}
