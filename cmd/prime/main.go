// Command prime refreshes the who's at cache once and exits. It exits
// non-zero when any key failed.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"docent_bot/internal/config"
	"docent_bot/internal/contentapi"
	"docent_bot/internal/storage"
	"docent_bot/internal/tasks"
	"docent_bot/internal/whoat"
)

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
	loc := cfg.Location()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var db *gorm.DB
	if cfg.Cache.Backend == config.CachePostgres {
		if db, err = storage.ConnectDatabase(cfg.Database, logger); err != nil {
			log.Fatal(err)
		}
		if err := storage.Migrate(db); err != nil {
			log.Fatal(err)
		}
	}
	store, _, closeCache, err := storage.OpenCache(ctx, cfg, db, logger)
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
	res := tasks.NewPrimer(lookup, site, store, logger).Prime(ctx)
	if !res.OK() {
		closeCache()
		os.Exit(1)
	}
}
