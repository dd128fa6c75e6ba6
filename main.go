package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/didip/tollbooth/v7"
	tollbooth_gin "github.com/didip/tollbooth_gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "github.com/yuanwb/silent-auth-service/docs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yuanwb/silent-auth-service/internal/authentication"
	"github.com/yuanwb/silent-auth-service/internal/user"
	"github.com/yuanwb/silent-auth-service/internal/utils"
)

// @title           Silent Auth Service API
// @version         1.0
// @description     Token issuance, rotation and revocation with silent client renewal.
// @termsOfService  http://example.com/terms/
//
// @host      localhost:3000
// @BasePath  /api
func main() {
	// load config
	cfg, err := utils.LoadConfig(".env")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// init database
	var db *gorm.DB
	if cfg.Database.SQLitePath != "" {
		db, err = utils.InitSQLiteDatabase(cfg.Database.SQLitePath)
	} else {
		db, err = utils.InitDatabase(cfg.Database.DSN())
	}
	if err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}
	if err := db.AutoMigrate(&user.User{}, &authentication.RefreshTokenRecord{}); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// init logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	// init Gin router
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), cors.Default())

	//
	// SWAGGER (protected by Basic Auth, not JWT)
	//
	swaggerGroup := router.Group("/swagger", gin.BasicAuth(gin.Accounts{
		cfg.Admin.Username: cfg.Admin.Password,
	}))
	swaggerGroup.GET("", ginSwagger.WrapHandler(swaggerFiles.Handler))
	swaggerGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	//
	// WIRE UP SERVICES
	//
	userRepo := user.NewUserRepository(db)
	verifier := user.NewCredentialVerifier(userRepo, cfg.Admin, logger)

	recordRepo := authentication.NewRecordRepository(db)
	issuer := authentication.NewTokenIssuer(
		recordRepo,
		logger,
		cfg.Token.AccessSecret,
		cfg.Token.AccessTTL,
		cfg.Token.RefreshSecret,
		cfg.Token.RefreshTTL(),
	)
	authService := authentication.NewAuthenticationService(
		verifier,
		recordRepo,
		issuer,
		logger,
		cfg.Token.RefreshSecret,
	)

	api := router.Group("/api")
	lmt := tollbooth.NewLimiter(10, nil)
	lmt.SetMessage(`{"error": "too many requests"}`)
	lmt.SetMessageContentType("application/json")
	api.Use(tollbooth_gin.LimitHandler(lmt))

	authentication.NewAuthHandler(api, authService, logger, cfg.Server.Production(), cfg.Token.RefreshTTL())

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := api.Group("/")
	authGroup.Use(
		authentication.AuthMiddleware(cfg.Token.AccessSecret, logger),
	)
	authGroup.GET("/users/me", func(c *gin.Context) {
		raw, _ := c.Get(authentication.ContextIdentityKey)
		identity := raw.(*user.Identity)
		c.JSON(http.StatusOK, identity)
	})

	// background purge of expired refresh records
	sweeper := authentication.NewSweeper(recordRepo, logger, time.Hour)
	sweeper.Start()

	//
	// START SERVER
	//
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped gracefully")
	}
}
