package worker

import (
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartReportWorker schedules the community report when cfg enables it. The
// returned stop func is always safe to call.
func StartReportWorker(reports *service.ReportService, cfg config.ReportConfig, logger *zap.Logger) (func(), error) {
	if reports == nil || !cfg.Enabled() {
		logger.Info("community report disabled")
		return func() {}, nil
	}
	if err := reports.Start(cfg.Schedule); err != nil {
		return func() {}, err
	}
	return reports.Stop, nil
}
