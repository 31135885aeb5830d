package bot

import (
	"fmt"
	"strings"

	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type PaginationParams struct {
	Screen       screen
	Page         int
	Title        string
	ItemPrefix   string
	PagePrefix   string
	BackCallback string
	BackLabel    string
	Footer       [][]tgbotapi.InlineKeyboardButton
}

// renderPaginatedList draws one page of a list with prev/next navigation.
func (b *Bot) renderPaginatedList(params PaginationParams, totalCount int, itemsPerPage int, renderer func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton)) {
	if itemsPerPage <= 0 {
		itemsPerPage = b.config.Bot.PaginationSize
	}
	if itemsPerPage <= 0 {
		itemsPerPage = models.DefaultPaginationSize
	}
	if params.Page < 0 {
		params.Page = 0
	}

	totalPages := (totalCount + itemsPerPage - 1) / itemsPerPage
	if params.Page >= totalPages && totalPages > 0 {
		params.Page = totalPages - 1
	}

	startIdx := params.Page * itemsPerPage
	endIdx := startIdx + itemsPerPage
	if endIdx > totalCount {
		endIdx = totalCount
	}

	content, keyboard := renderer(startIdx, endIdx)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("%s\n\n", params.Title))
	if totalPages > 1 {
		message.WriteString(fmt.Sprintf("Page %d of %d\n\n", params.Page+1, totalPages))
	}
	message.WriteString(content)

	var navButtons []tgbotapi.InlineKeyboardButton
	if params.Page > 0 {
		navButtons = append(navButtons, btn("⬅️ Prev", fmt.Sprintf("%s%d", params.PagePrefix, params.Page-1)))
	}
	if endIdx < totalCount {
		navButtons = append(navButtons, btn("Next ➡️", fmt.Sprintf("%s%d", params.PagePrefix, params.Page+1)))
	}
	if len(navButtons) > 0 {
		keyboard = append(keyboard, navButtons)
	}
	keyboard = append(keyboard, params.Footer...)

	if params.BackCallback != "" {
		label := params.BackLabel
		if label == "" {
			label = "⬅️ Back"
		}
		keyboard = append(keyboard, btnRow(btn(label, params.BackCallback)))
	}

	b.show(params.Screen, message.String(), markup(keyboard...))
}

// renderPaginatedWorkers lists workers as buttons ItemPrefix+<id>.
func (b *Bot) renderPaginatedWorkers(params PaginationParams, workers []models.Worker) {
	b.renderPaginatedList(params, len(workers), 0, func(startIdx, endIdx int) (string, [][]tgbotapi.InlineKeyboardButton) {
		var content strings.Builder
		var keyboard [][]tgbotapi.InlineKeyboardButton

		if len(workers) == 0 {
			content.WriteString("No workers yet.")
		}
		for i, w := range workers[startIdx:endIdx] {
			content.WriteString(fmt.Sprintf("%d. <b>%s</b>", startIdx+i+1, escape(w.Name)))
			if w.Interval() > 0 {
				content.WriteString(fmt.Sprintf(" · %d min slots", w.Interval()))
			}
			content.WriteString("\n")

			keyboard = append(keyboard, btnRow(btn(
				fmt.Sprintf("%d. %s", startIdx+i+1, w.Name),
				fmt.Sprintf("%s%d", params.ItemPrefix, w.ID),
			)))
		}

		return content.String(), keyboard
	})
}
