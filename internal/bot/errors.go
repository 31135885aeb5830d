package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"salonbook/internal/apiclient"
	"salonbook/internal/booking"
	"salonbook/internal/forms"
	"salonbook/internal/metrics"
	"salonbook/internal/service"
	"salonbook/internal/session"

	"github.com/rs/zerolog"
)

const msgLoginAgain = "🔒 Your session has expired. Please /login again."

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var fe forms.FieldErrors
	switch {
	case errors.As(err, &fe):
		return "⚠️ Please check the input:\n" + fieldList(fe)

	case errors.Is(err, apiclient.ErrValidation):
		if fields := apiclient.FieldErrors(err); len(fields) > 0 {
			return "⚠️ Please check the input:\n" + fieldList(fields)
		}
		return "⚠️ The server rejected the input."

	case errors.Is(err, booking.ErrSlotTaken), errors.Is(err, apiclient.ErrConflict):
		return "⚠️ This time was just booked by someone else. Please choose another one."

	case errors.Is(err, session.ErrNotLoggedIn):
		if errors.Is(err, session.ErrSessionExpired) {
			return msgLoginAgain
		}
		return "🔒 Please /login first."

	case errors.Is(err, apiclient.ErrUnauthorized):
		return "🔒 The salon service did not accept this request."

	case errors.Is(err, apiclient.ErrRateLimited):
		if wait, ok := apiclient.RetryIn(err); ok && wait > 0 {
			return fmt.Sprintf("⏳ Too many requests. Please try again in %d s.", int(math.Ceil(wait.Seconds())))
		}
		return "⏳ Too many requests. Please try again in a moment."

	case errors.Is(err, apiclient.ErrNotFound):
		return "🔍 Not found. It may have been removed."

	case errors.Is(err, service.ErrPastSlot):
		return "⚠️ This time is already in the past."
	case errors.Is(err, service.ErrBreakSlot):
		return "⚠️ This time falls on the break."
	case errors.Is(err, service.ErrOffDaySlot):
		return "⚠️ The worker is off on this day."
	case errors.Is(err, service.ErrClosedDay):
		return "⚠️ The worker does not work at this time."
	case errors.Is(err, service.ErrSlotBusy):
		return "⚠️ This slot already has an appointment."
	case errors.Is(err, service.ErrAfterHours):
		return "⚠️ The appointment would run past the end of the working day."

	case errors.Is(err, apiclient.ErrTransport):
		return "📡 The salon service is unreachable right now. Please try again later."
	}

	return "❌ Something went wrong while processing your request. Please try again later."
}

func fieldList(fe map[string][]string) string {
	var sb strings.Builder
	for _, f := range forms.FieldErrors(fe).Fields() {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", escape(fieldLabel(f)), escape(strings.Join(fe[f], "; "))))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func fieldLabel(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// presentAuthError reports the failure of a call made with the owner's token.
// A 401 there means the token is dead, so the session ends first.
func (b *Bot) presentAuthError(ctx context.Context, chatID, userID int64, err error) {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		b.presentError(ctx, chatID, userID, err)
		return
	}
	if b.sessions != nil && b.sessions.HandleError(ctx, userID, err) {
		zerolog.Ctx(ctx).Info().Int64("user_id", userID).Msg("Session rejected by API")
	}
	b.guard.Unlock(userID)
	b.clearUserState(ctx, userID)
	b.sendMessage(chatID, msgLoginAgain)
}

// presentError reports err to the chat. It never touches the stored session: public
// calls and sign-in attempts carry no owner token, so their 401 says nothing about it.
func (b *Bot) presentError(ctx context.Context, chatID, userID int64, err error) {
	l := zerolog.Ctx(ctx)
	if refused(err) {
		l.Info().Err(err).Int64("user_id", userID).Msg("Request refused")
	} else {
		metrics.IncBotError()
		l.Error().Err(err).Int64("user_id", userID).Msg("Request failed")
	}
	b.sendMessage(chatID, b.getErrorMessage(err))
}

// refused reports errors caused by the user's input or state rather than a failure.
func refused(err error) bool {
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		return true
	}
	for _, target := range []error{
		apiclient.ErrValidation, apiclient.ErrConflict, apiclient.ErrRateLimited, apiclient.ErrNotFound,
		session.ErrNotLoggedIn, booking.ErrSlotTaken,
		service.ErrPastSlot, service.ErrBreakSlot, service.ErrOffDaySlot, service.ErrClosedDay, service.ErrSlotBusy,
		service.ErrAfterHours,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
