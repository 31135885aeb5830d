package bot

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/export"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// exportWeek sends an xlsx of the worker's appointments for seven days from the given date.
func (b *Bot) exportWeek(ctx context.Context, sc screen, userID, workerID int64, from string) {
	client, _, ok := b.authClient(ctx, sc, userID)
	if !ok {
		return
	}
	start, err := time.ParseInLocation(models.DateLayout, from, b.loc)
	if err != nil {
		start, _ = time.ParseInLocation(models.DateLayout, b.today(), b.loc)
	}

	worker, err := client.GetWorker(ctx, workerID)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}
	days, err := b.dashboard.WeekAppointments(ctx, client, workerID, start)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	data, name, err := b.buildExport(*worker, days)
	if err != nil {
		b.presentAuthError(ctx, sc.chatID, userID, err)
		return
	}

	caption := fmt.Sprintf("%s: %s – %s", worker.Name, displayDate(days[0].Date), displayDate(days[len(days)-1].Date))
	if _, err := b.tgService.SendDocument(sc.chatID, name, data, caption); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("worker_id", workerID).Msg("Failed to send export")
		b.sendMessage(sc.chatID, "❌ Could not send the file, please try again.")
	}
}

// buildExport renders the workbook and keeps a copy in the exports directory.
func (b *Bot) buildExport(worker models.Worker, days []models.DayAppointments) ([]byte, string, error) {
	wb, err := export.Build(worker, days)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = wb.Close() }()

	name := export.FileName(worker, days)
	if b.config.Exports.Path != "" {
		if path, err := wb.Save(b.config.Exports.Path, name); err != nil {
			b.logger.Warn().Err(err).Msg("Failed to keep export copy")
		} else {
			b.logger.Info().Str("path", path).Int64("worker_id", worker.ID).Msg("Export saved")
		}
	}

	data, err := wb.Bytes()
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}
