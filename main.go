package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "docent_bot/docs"
	"docent_bot/internal/auth"
	"docent_bot/internal/config"
	"docent_bot/internal/contentapi"
	"docent_bot/internal/handlers"
	"docent_bot/internal/report"
	"docent_bot/internal/slackbot"
	"docent_bot/internal/storage"
	"docent_bot/internal/tasks"
	"docent_bot/internal/whoat"
	"docent_bot/internal/ws"
)

// @Title						Docent bot admin API
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	if os.Getenv("ENV_CHEK") == "" {
		fmt.Println("Loading .env")
		if err := godotenv.Load(); err != nil {
			log.Fatal("could not load .env: ", err)
		}
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal(err)
	}
	logger := config.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.ConnectDatabase(cfg.Database, logger)
	if err != nil {
		log.Fatal(err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal(err)
	}
	if created, err := storage.EnsureAdmin(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal(err)
	} else if created {
		logger.Info("admin account created", slog.String("email", cfg.Auth.AdminEmail))
	}

	store, pruner, closeCache, err := storage.OpenCache(ctx, cfg, db, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer closeCache()

	site, err := contentapi.New(contentapi.Config{
		BaseURL:        cfg.Site.URL,
		Username:       cfg.Site.Username,
		Password:       cfg.Site.Password,
		Timeout:        cfg.Site.Timeout,
		ConnectTimeout: cfg.Site.ConnectTimeout,
		SkipTLSVerify:  cfg.Site.SkipTLSVerify,
		Bundles: map[string]string{
			contentapi.VocabWildlife: cfg.Site.WildlifeBundle,
			contentapi.VocabOther:    cfg.Site.OtherBundle,
		},
	}, logger)
	if err != nil {
		log.Fatal(err)
	}

	lookup := whoat.NewLookup(whoat.NewService(site, loc, logger), store, loc, logger)
	primer := tasks.NewPrimer(lookup, site, store, logger)

	var prune tasks.Pruner
	if pruner != nil {
		prune = pruner
	}
	scheduler, err := tasks.InitScheduler(cfg.PrimeCron, loc, primer, prune, 7*24*time.Hour, logger)
	if err != nil {
		log.Fatal(err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// The report dialog needs the aux lists; do not wait for the first tick.
	go primer.Prime(ctx)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)

	reports := report.NewService(db, site, hub, logger)

	slackOpts := []slack.Option{}
	if cfg.Slack.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(cfg.Slack.APIURL))
	}
	bot := slackbot.New(slack.New(cfg.Slack.BotToken, slackOpts...), lookup, reports, slackbot.Options{
		SigningSecret: cfg.Slack.SigningSecret,
		AdminUserIDs:  cfg.Slack.AdminUserIDs,
		Lists:         store,
	}, logger)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	bot.Register(r)

	requireAuth := auth.AuthMiddleware([]byte(cfg.Auth.AccessSecret))
	authHandler := handlers.NewAuthHandler(db, cfg.Auth, logger)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/register", requireAuth, authHandler.Register)
	}

	api := handlers.NewAPI(handlers.Deps{
		WhoAt:   lookup,
		Reports: reports,
		Site:    site,
		Lists:   store,
		Logger:  logger,
	})
	apiGroup := r.Group("/api", requireAuth)
	{
		apiGroup.GET("/whoat", api.GetWhoAt)
		apiGroup.DELETE("/cache/:key", api.DeleteCacheKey)
		apiGroup.GET("/lists/:name", api.GetList)
		apiGroup.GET("/reports", api.ListReports)
		apiGroup.GET("/reports/remote", api.ListRemoteReports)
		apiGroup.GET("/reports/ws", hub.Handler(ws.TopicReports))
		apiGroup.GET("/reports/:id", api.GetReport)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server: ", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
