package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GenerateOTP returns a uniformly random 6-digit code.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		n = big.NewInt(time.Now().UnixNano() % 1_000_000)
	}
	return fmt.Sprintf("%06d", n.Int64())
}

// Pagination holds parsed page/limit query values.
type Pagination struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// ParsePagination reads page and limit from the query, clamping limit to max.
func ParsePagination(c *fiber.Ctx, defaultLimit, max int) Pagination {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > max {
		limit = max
	}
	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// PageMeta is the pagination block returned alongside list data.
func PageMeta(p Pagination, total int64) fiber.Map {
	totalPages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return fiber.Map{
		"page":        p.Page,
		"limit":       p.Limit,
		"total":       total,
		"total_pages": totalPages,
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// ShortCode returns n uppercase hex characters from a random UUID.
func ShortCode(n int) string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(code) {
		n = len(code)
	}
	return code[:n]
}

// NewOrderNumber returns a human-friendly order number such as LWO-260314-4F2A9C1B.
func NewOrderNumber(t time.Time) string {
	return "LWO-" + t.Format("060102") + "-" + ShortCode(8)
}
