package bot

import (
	"context"
	"os"
	"time"

	"salonbook/internal/apiclient"
	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/navigation"
	"salonbook/internal/service"
	"salonbook/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

type Bot struct {
	tgService    domain.TelegramService
	config       *config.Config
	stateService domain.StateManager
	sessions     *session.Manager
	dashboard    *service.DashboardService
	guard        *navigation.Guard
	blacklist    map[int64]bool
	loc          *time.Location
	now          func() time.Time
	logger       *zerolog.Logger
}

func NewBot(
	tgService domain.TelegramService,
	config *config.Config,
	stateService domain.StateManager,
	sessions *session.Manager,
	dashboard *service.DashboardService,
	guard *navigation.Guard,
	logger *zerolog.Logger,
) (*Bot, error) {
	if guard == nil {
		guard = navigation.NewGuard()
	}

	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}

	blacklist := make(map[int64]bool, len(config.Blacklist))
	for _, id := range config.Blacklist {
		blacklist[id] = true
	}

	loc := config.Bot.Location()
	if dashboard == nil {
		dashboard = service.NewDashboardService(loc, logger)
	}

	return &Bot{
		tgService:    tgService,
		config:       config,
		stateService: stateService,
		sessions:     sessions,
		dashboard:    dashboard,
		guard:        guard,
		blacklist:    blacklist,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}, nil
}

// dialog steps kept in UserState.CurrentStep
const (
	StateBooking       = "booking"
	StateRegister      = "register"
	StateLoginEmail    = "login_email"
	StateLoginPassword = "login_password"
	StateAppointment   = "appointment"
	StateServiceInput  = "service_input"
	StateScheduleInput = "schedule_input"
	StateOffDayInput   = "offday_input"
	StateTimeSlotInput = "timeslot_input"
	StateWorkerInput   = "worker_input"
	StateProfileInput  = "profile_input"
)

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tgService.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tgService.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpdate(time.Since(start).Seconds())
	}()

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)
	updateCtx = apiclient.ContextWithRequestID(updateCtx, requestID)

	b.withRecovery(updateCtx, func() {
		var userID, chatID int64
		switch {
		case update.Message != nil && update.Message.From != nil:
			userID, chatID = update.Message.From.ID, update.Message.Chat.ID
		case update.CallbackQuery != nil:
			userID = update.CallbackQuery.From.ID
			if update.CallbackQuery.Message != nil {
				chatID = update.CallbackQuery.Message.Chat.ID
			}
		}

		if userID == 0 || b.blacklist[userID] {
			return
		}

		if b.rateLimited(updateCtx, userID) {
			l.Warn().Int64("user_id", userID).Msg("Rate limit exceeded")
			if update.Message != nil {
				b.sendMessage(chatID, "⚠️ You are sending messages too often. Please wait a little.")
			}
			return
		}

		if update.CallbackQuery != nil {
			b.handleCallbackQuery(updateCtx, update.CallbackQuery)
			return
		}

		b.handleMessage(updateCtx, update.Message)
	})
}
