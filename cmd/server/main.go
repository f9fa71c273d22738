package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ndrozdov/postboard/internal/config"
	"github.com/ndrozdov/postboard/internal/csrf"
	"github.com/ndrozdov/postboard/internal/es"
	"github.com/ndrozdov/postboard/internal/handlers"
	"github.com/ndrozdov/postboard/internal/httpserver"
	"github.com/ndrozdov/postboard/internal/logging"
	authmw "github.com/ndrozdov/postboard/internal/middleware/auth"
	loggingmw "github.com/ndrozdov/postboard/internal/middleware/logging"
	"github.com/ndrozdov/postboard/internal/mykafka"
	"github.com/ndrozdov/postboard/internal/repo"
	"github.com/ndrozdov/postboard/internal/token"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	secret := []byte(configuration.SECRET_KEY)
	tokens := token.NewService(secret, configuration.ACCESS_TOKEN_TTL)
	guard := csrf.NewGuard(secret, configuration.CSRF_TOKEN_TTL, configuration.IS_PRODUCTION)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		c, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		esClient = c
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	accounts := &repo.AccountRepo{DB: db}
	posts := &repo.PostRepo{DB: db}
	authn := &authmw.Authenticator{Tokens: tokens, Accounts: accounts}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			Accounts: accounts,
			Tokens:   tokens,
			Guard:    guard,
			Producer: prod,
			Secure:   configuration.IS_PRODUCTION,
		},
		PostHandler: &handlers.PostHandler{
			Posts:    posts,
			Guard:    guard,
			Producer: prod,
			ES:       esClient,
			ESIndex:  "posts",
		},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "posts"},
		Guard:         guard,
		Authn:         authn,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
