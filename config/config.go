package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	AppEnv    string
	JWTKey    string
	SaltRound int

	DBDriver   string // postgres, mysql, sqlite
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBDSN      string // overrides the individual DB_* values when set

	EmailSender     string
	EmailSenderName string
	SMTPHost        string
	SMTPPort        string
	Password        string // SMTP Password
	SendgridAPIKey  string
	SalesEmail      string

	PaymentApiURL        string
	PaymentSecretKey     string
	PaymentWebhookSecret string
	PublicBaseURL        string

	CertificateDir string
	UploadDir      string

	TaxRate                    float64
	FlatShippingCents          int64
	FreeShippingThresholdCents int64

	ExamQuestionCount        int
	ExamDuration             time.Duration
	ExamPassPercent          int
	ExamGrace                time.Duration
	InviteTTL                time.Duration
	CertificateValidityYears int

	LookupRatePerSec int
	LookupBurst      int

	TrustedProxies []string // peers whose X-Forwarded-For is believed
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "liftworks"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBDSN:      getEnv("DB_DSN", ""),

		EmailSender:     getEnv("EMAIL_SENDER", "no-reply@liftworks.local"),
		EmailSenderName: getEnv("EMAIL_SENDER_NAME", "LiftWorks"),
		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		Password:        getEnv("SMTP_PASSWORD", ""),
		SendgridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		SalesEmail:      getEnv("SALES_EMAIL", "sales@liftworks.local"),

		PaymentApiURL:        getEnv("PAYMENT_API_URL", "https://api.stripe.com/v1/"),
		PaymentSecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
		PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		CertificateDir: getEnv("CERTIFICATE_DIR", "./storage/certificates"),
		UploadDir:      getEnv("UPLOAD_DIR", "./public/uploads"),

		TaxRate:                    getEnvFloat("TAX_RATE", 0.0825),
		FlatShippingCents:          int64(getEnvInt("FLAT_SHIPPING_CENTS", 1495)),
		FreeShippingThresholdCents: int64(getEnvInt("FREE_SHIPPING_THRESHOLD_CENTS", 25000)),

		ExamQuestionCount:        getEnvInt("EXAM_QUESTION_COUNT", 25),
		ExamDuration:             getEnvDuration("EXAM_DURATION", 45*time.Minute),
		ExamPassPercent:          getEnvInt("EXAM_PASS_PERCENT", 80),
		ExamGrace:                getEnvDuration("EXAM_GRACE", 30*time.Second),
		InviteTTL:                getEnvDuration("INVITE_TTL", 14*24*time.Hour),
		CertificateValidityYears: getEnvInt("CERTIFICATE_VALIDITY_YEARS", 3),

		LookupRatePerSec: getEnvInt("LOOKUP_RATE_PER_SEC", 5),
		LookupBurst:      getEnvInt("LOOKUP_BURST", 20),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.PaymentWebhookSecret == "" {
		log.Println("Warning: PAYMENT_WEBHOOK_SECRET is empty. Payment webhooks will be rejected.")
	}
}

// Defaults returns a configuration populated only with default values.
// Tests use it to avoid reading the environment.
func Defaults() *Config {
	return &Config{
		Port:                       "3000",
		AppEnv:                     "test",
		JWTKey:                     "test-secret",
		SaltRound:                  4,
		DBDriver:                   "sqlite",
		EmailSender:                "no-reply@liftworks.local",
		EmailSenderName:            "LiftWorks",
		SalesEmail:                 "sales@liftworks.local",
		PublicBaseURL:              "http://localhost:3000",
		CertificateDir:             os.TempDir(),
		UploadDir:                  os.TempDir(),
		TaxRate:                    0.0825,
		FlatShippingCents:          1495,
		FreeShippingThresholdCents: 25000,
		ExamQuestionCount:          25,
		ExamDuration:               45 * time.Minute,
		ExamPassPercent:            80,
		ExamGrace:                  30 * time.Second,
		InviteTTL:                  14 * 24 * time.Hour,
		CertificateValidityYears:   3,
		LookupRatePerSec:           5,
		LookupBurst:                20,
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Error converting environment variable %s to float: %v", key, err)
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to duration: %v", key, err)
		return defaultValue
	}
	return d
}

// getEnvList splits a comma-separated variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
