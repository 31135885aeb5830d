// Package cache keeps API reads under explicit resource keys.
//
// A key names a resource ("workers", "worker:7:services"). Invalidating a key
// removes it and every key below it ("worker:7" also drops "worker:7:services"),
// across all session scopes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"salonbook/internal/events"
)

// AnonymousScope holds reads made without a session token.
const AnonymousScope = "anon"

// Store is a scoped keyed cache.
type Store interface {
	// Get decodes the cached value into out and reports whether it was found.
	Get(ctx context.Context, scope, key string, out interface{}) (bool, error)
	Set(ctx context.Context, scope, key string, val interface{}) error
	// Invalidate removes keys and their descendants in every scope.
	Invalidate(ctx context.Context, keys ...string) error
	DropScope(ctx context.Context, scope string) error
}

// Scope derives the cache scope of a session token.
func Scope(token string) string {
	if token == "" {
		return AnonymousScope
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// Covers reports whether invalidating key removes candidate.
func Covers(key, candidate string) bool {
	return candidate == key || strings.HasPrefix(candidate, key+":")
}

func covered(candidate string, keys []string) bool {
	for _, k := range keys {
		if Covers(k, candidate) {
			return true
		}
	}
	return false
}

// Resource keys.

func WorkersKey() string { return "workers" }

func WorkerKey(workerID int64) string { return fmt.Sprintf("worker:%d", workerID) }

func SchedulesKey(workerID int64) string { return WorkerKey(workerID) + ":schedules" }

func ServicesKey(workerID int64) string { return WorkerKey(workerID) + ":services" }

func OffDaysKey(workerID int64) string { return WorkerKey(workerID) + ":off-days" }

func AppointmentsKey(workerID int64, date string) string {
	return WorkerKey(workerID) + ":appointments:" + date
}

func availableWorkerKey(workerID int64) string { return fmt.Sprintf("available:%d", workerID) }

func AvailableKey(workerID int64, date string, serviceID int64) string {
	return fmt.Sprintf("%s:%s:%d", availableWorkerKey(workerID), date, serviceID)
}

func SalonKey(salonID int64) string { return fmt.Sprintf("salon:%d", salonID) }

func UserKey() string { return "user" }

// KeysFor returns the keys a successful mutation makes stale.
func KeysFor(eventType string, p events.ChangeEventPayload) []string {
	var keys []string
	add := func(k ...string) { keys = append(keys, k...) }

	salon := "salon"
	if p.SalonID != 0 {
		salon = SalonKey(p.SalonID)
	}

	switch eventType {
	case events.EventAppointmentBooked, events.EventAppointmentCreated, events.EventBookingConflict:
		if p.Date != "" {
			add(AppointmentsKey(p.WorkerID, p.Date), availableWorkerKey(p.WorkerID)+":"+p.Date)
		} else {
			add(WorkerKey(p.WorkerID)+":appointments", availableWorkerKey(p.WorkerID))
		}
	case events.EventWorkerCreated:
		add(WorkersKey(), salon)
	case events.EventWorkerUpdated, events.EventWorkerDeleted:
		add(WorkersKey(), WorkerKey(p.WorkerID), availableWorkerKey(p.WorkerID), salon)
	case events.EventScheduleSaved:
		add(SchedulesKey(p.WorkerID), availableWorkerKey(p.WorkerID))
	case events.EventServiceSaved, events.EventServiceDeleted:
		add(ServicesKey(p.WorkerID), availableWorkerKey(p.WorkerID))
	case events.EventOffDayCreated, events.EventOffDayDeleted:
		add(OffDaysKey(p.WorkerID), availableWorkerKey(p.WorkerID))
	case events.EventUserUpdated:
		add(UserKey(), salon)
	}
	return keys
}
