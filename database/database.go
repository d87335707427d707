package database

import (
	"fmt"
	"liftworks/config"
	"liftworks/logger"
	"liftworks/models"
	"liftworks/models/catalog"
	"liftworks/models/enterprise"
	"liftworks/models/lookup"
	"liftworks/models/training"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DbInstance struct holds the database connection instance
type DbInstance struct {
	Db *gorm.DB
}

// Database is the global database instance
var Database DbInstance

// ConnectDb opens the configured database, applies migrations and stores the
// handle globally.
func ConnectDb(cfg *config.Config) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}

	// Set up connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)   // Maximum open connections
	sqlDB.SetMaxIdleConns(5)    // Maximum idle connections
	sqlDB.SetConnMaxLifetime(0) // No timeout

	if err := Migrate(db); err != nil {
		return err
	}

	Database = DbInstance{Db: db}
	return nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres", "":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = fmt.Sprintf(
				"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
			)
		}
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
			)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DBDSN
		if dsn == "" {
			dsn = cfg.DBName + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// OpenSqlite opens and migrates a sqlite database. Used by tests and local tooling.
// A single connection keeps shared in-memory databases consistent.
func OpenSqlite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Models lists every persisted type, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.OneTimeCode{},
		&models.LoginAttempt{},
		&models.Permission{},

		&catalog.Part{},
		&catalog.QuoteRequest{},
		&catalog.QuoteItem{},
		&catalog.Order{},
		&catalog.OrderItem{},

		&lookup.VinYearCode{},
		&lookup.LookupLog{},

		&training.Course{},
		&training.Module{},
		&training.Lesson{},
		&training.LessonCompletion{},
		&training.QuizItem{},
		&training.QuizAttempt{},
		&training.Enrollment{},
		&training.ModuleProgress{},
		&training.ExamPaper{},
		&training.ExamSession{},
		&training.Certificate{},

		&enterprise.Organization{},
		&enterprise.OrgMember{},
		&enterprise.OrgSeat{},
		&enterprise.Invitation{},
		&enterprise.Evaluation{},
	}
}

// Migrate performs database migrations
func Migrate(db *gorm.DB) error {
	logger.Log.Info("Running Migrations...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Log.Info("Migrations completed successfully.")
	return nil
}
