// Command cleanup removes festivals that already ended from the CMS. It is
// meant to run periodically (cron, k8s CronJob) next to the scraper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"festival-scraper/config"
	"festival-scraper/services"
	"festival-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	if cfg.CMSToken == "" {
		logger.Error("CMS_TOKEN is not set, nothing to clean")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("=== Festival cleanup starting (%s/api/%s) ===", cfg.CMSURL, cfg.CMSCollection)

	cms := services.NewCMSClient(cfg.CMSURL, cfg.CMSCollection, cfg.CMSToken, logger)
	deleted, err := services.PurgeExpired(ctx, cms, cfg.CleanupPageSize, time.Now(), logger)
	if err != nil {
		logger.Error("Cleanup failed after %d deletion(s): %v", deleted, err)
		os.Exit(1)
	}
	logger.Info("Cleanup done — %d expired festival(s) deleted", deleted)
}
