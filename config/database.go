package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase establishes a connection using configuration values and creates missing ledger tables.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	var err error
	db, err = OpenDatabase(Get())
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Only migrate when table not exists to avoid intrusive changes on existing schema
	for _, model := range modelDefs {
		if db.Migrator().HasTable(model) {
			continue
		}
		if err := db.AutoMigrate(model); err != nil {
			log.Fatalf("auto migration failed for %T: %v", model, err)
		}
	}

	return db
}

// OpenDatabase opens and pings a gorm connection for the configured driver.
func OpenDatabase(c AppConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(c)
	if err != nil {
		return nil, err
	}

	// Derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(c.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if c.DBDriver == "sqlite" {
		// sqlite allows a single writer; serialize through one connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	// Ping once at boot so network/auth problems surface before the first query
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return gdb, nil
}

func dialectorFor(c AppConfig) (gorm.Dialector, error) {
	switch c.DBDriver {
	case "mysql", "":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				c.DBUser,
				c.DBPassword,
				c.DBHost,
				c.DBPort,
				c.DBName,
			)
		}
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
				c.DBHost,
				c.DBPort,
				c.DBUser,
				c.DBPassword,
				c.DBName,
			)
		}
		return postgres.Open(dsn), nil
	case "sqlite":
		dsn := c.DatabaseURI
		if dsn == "" {
			dsn = c.DBName + ".db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
