package middleware

import (
	"errors"
	"liftworks/config"
	"liftworks/models"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// Token scopes. Session tokens reach the whole API; reset tokens only the
// password reset endpoint.
const (
	ScopeSession       = "session"
	ScopePasswordReset = "password_reset"
)

const (
	SessionTTL       = 24 * time.Hour
	PasswordResetTTL = 15 * time.Minute
)

var (
	errMissingToken = errors.New("Missing or invalid Authorization header")
	errTokenFormat  = errors.New("Invalid Authorization header format")
	errInvalidToken = errors.New("Invalid or expired token")
	errWrongScope   = errors.New("Token is not valid for this resource")
)

// Claims is the signed payload of every token the API hands out.
type Claims struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	Scope  string `json:"scope"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for user limited to scope.
func IssueToken(user models.User, scope string) (string, error) {
	ttl := SessionTTL
	if scope == ScopePasswordReset {
		ttl = PasswordResetTTL
	}
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
		Email:  user.Email,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.AppConfig.JWTKey))
}

func parseToken(authHeader string) (*Claims, error) {
	if authHeader == "" {
		return nil, errMissingToken
	}
	raw, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || raw == "" {
		return nil, errTokenFormat
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.UserID == 0 {
		return nil, errInvalidToken
	}
	return claims, nil
}

func storeClaims(c *fiber.Ctx, claims *Claims) {
	c.Locals("userId", claims.UserID)
	c.Locals("role", claims.Role)
	c.Locals("email", claims.Email)
}

// requireScope builds a guard accepting only tokens of the given scope.
func requireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := parseToken(c.Get(fiber.HeaderAuthorization))
		if err == nil && claims.Scope != scope {
			err = errWrongScope
		}
		if err != nil {
			return JsonResponse(c, fiber.StatusUnauthorized, false, err.Error(), nil)
		}
		storeClaims(c, claims)
		return c.Next()
	}
}

// JWTMiddleware admits requests carrying a valid session token.
var JWTMiddleware = requireScope(ScopeSession)

// PasswordResetToken admits only the short-lived token from a verified reset code.
var PasswordResetToken = requireScope(ScopePasswordReset)

// OptionalJWT attaches the session user when present and never rejects.
func OptionalJWT(c *fiber.Ctx) error {
	if claims, err := parseToken(c.Get(fiber.HeaderAuthorization)); err == nil && claims.Scope == ScopeSession {
		storeClaims(c, claims)
	}
	return c.Next()
}
