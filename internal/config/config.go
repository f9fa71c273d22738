package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/models"
)

type Config struct {
	DB_HOST       string
	DB_PORT       string
	DB_USER       string
	DB_PASSWORD   string
	DB_NAME       string
	ES_URL        string
	ES_USER       string
	ES_PASSWORD   string
	KAFKA_ADDRESS string
	SECRET_KEY    string
	IS_PRODUCTION bool
	LOG_LEVEL     string

	// The session TTL and the CSRF freshness window look identical but
	// are tuned independently.
	ACCESS_TOKEN_TTL time.Duration
	CSRF_TOKEN_TTL   time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:          os.Getenv("DB_HOST"),
		DB_PORT:          os.Getenv("DB_PORT"),
		DB_USER:          os.Getenv("DB_USER"),
		DB_PASSWORD:      os.Getenv("DB_PASSWORD"),
		DB_NAME:          os.Getenv("DB_NAME"),
		ES_URL:           os.Getenv("ES_URL"),
		ES_USER:          os.Getenv("ES_USER"),
		ES_PASSWORD:      os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:    os.Getenv("KAFKA_ADDRESS"),
		SECRET_KEY:       os.Getenv("SECRET_KEY"),
		IS_PRODUCTION:    os.Getenv("IS_PRODUCTION") == "True",
		LOG_LEVEL:        os.Getenv("LOG_LEVEL"),
		ACCESS_TOKEN_TTL: durationEnv("ACCESS_TOKEN_TTL", time.Hour),
		CSRF_TOKEN_TTL:   durationEnv("CSRF_TOKEN_TTL", time.Hour),
	}

	if config.SECRET_KEY == "" {
		return nil, fmt.Errorf("SECRET_KEY environment variable is not set")
	}

	return config, nil
}

func durationEnv(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Notice: invalid %s=%q, using %s", name, raw, def)
		return def
	}
	return d
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.MenuItem{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return seedMenu(db)
}

func seedMenu(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.MenuItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	items := []models.MenuItem{
		{Title: "Home", URL: "/"},
		{Title: "Add post", URL: "/add_post"},
		{Title: "Log in", URL: "/login"},
	}
	return db.Create(&items).Error
}
