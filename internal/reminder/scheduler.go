// Package reminder implements the daily routine check-in and notification
// scheduler: a polling loop that compares the wall clock against each user's
// configured AM/PM routine times and fires a push notification plus a
// reminder email at most once per (user, slot, day).
package reminder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/michellelee0718/porespective/internal/models"
	"github.com/michellelee0718/porespective/internal/services"
)

// Notification bodies per slot, fixed by the product.
const (
	NotificationTitle = "Skincare Reminder"
	AMMessage         = "Time for your morning skincare routine!"
	PMMessage         = "Time for your night skincare routine!"
)

// Clock abstracts wall-clock time so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// ProfileStore is the slice of the user store the scheduler needs. Reads
// happen fresh on every tick; nothing staleness-sensitive is cached.
type ProfileStore interface {
	ListReminderCandidates(ctx context.Context) ([]models.UserProfile, error)
	InitDailyCheckIn(ctx context.Context, userID, today string) (*models.RoutineCheckIn, error)
	SetNotificationFlag(ctx context.Context, userID, slot string, value bool) error
}

// CurrentSlot maps a wall-clock time to the routine slot it can trigger and
// the "H:MM" string compared against the stored routine time. Hours >= 13
// evaluate the PM slot with 12-hour normalization; everything else is AM.
// The hour is not zero-padded, the minute is.
func CurrentSlot(now time.Time) (slot string, clock string) {
	hour := now.Hour()
	if hour >= 13 {
		return "pm", fmt.Sprintf("%d:%02d", hour-12, now.Minute())
	}
	return "am", fmt.Sprintf("%d:%02d", hour, now.Minute())
}

type Scheduler struct {
	store    ProfileStore
	notifier services.Notifier
	mailer   services.Mailer
	clock    Clock
	interval time.Duration

	lastDate string
}

type Option func(*Scheduler)

// WithClock substitutes the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func New(store ProfileStore, notifier services.Notifier, mailer services.Mailer, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		clock:    SystemClock(),
		interval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run polls until the context is canceled. The daily reset runs once at
// entry and again whenever the calendar date changes between ticks.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval > time.Minute {
		return fmt.Errorf("reminder interval %s exceeds one minute; exact-minute matches would be skipped", s.interval)
	}

	s.ResetAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			today := services.TodayString(s.clock.Now())
			if today != s.lastDate {
				s.ResetAll(ctx)
			}
			s.Tick(ctx)
		}
	}
}

// ResetAll re-derives every candidate's check-in record for the current
// date. Stale records get completion and notification flags cleared.
func (s *Scheduler) ResetAll(ctx context.Context) {
	now := s.clock.Now()
	today := services.TodayString(now)
	s.lastDate = today

	profiles, err := s.store.ListReminderCandidates(ctx)
	if err != nil {
		log.Printf("[Reminder] daily reset: list failed: %v", err)
		return
	}
	for _, prof := range profiles {
		if _, err := s.store.InitDailyCheckIn(ctx, prof.UserID, today); err != nil {
			log.Printf("[Reminder] daily reset failed user=%s: %v", prof.UserID, err)
		}
	}
}

// Tick evaluates every candidate once against the current time.
func (s *Scheduler) Tick(ctx context.Context) {
	profiles, err := s.store.ListReminderCandidates(ctx)
	if err != nil {
		log.Printf("[Reminder] tick: list failed: %v", err)
		return
	}

	now := s.clock.Now()
	for i := range profiles {
		if err := s.Evaluate(ctx, &profiles[i], now); err != nil {
			log.Printf("[Reminder] evaluate failed user=%s: %v", profiles[i].UserID, err)
		}
	}
}

// Evaluate decides whether "now" triggers the profile's current slot, and if
// so fires the notification flag write, the push, and the email, in that
// order. The three side effects are not atomic; a partial failure is logged
// and not rolled back.
func (s *Scheduler) Evaluate(ctx context.Context, prof *models.UserProfile, now time.Time) error {
	if !prof.HasRoutine() {
		return nil
	}

	today := services.TodayString(now)
	checkIn := prof.RoutineCheckIn
	amNotified := prof.AMNotification
	pmNotified := prof.PMNotification

	// A stale record means none of its flags can be trusted; reset first.
	if checkIn.LastResetDate != today {
		fresh, err := s.store.InitDailyCheckIn(ctx, prof.UserID, today)
		if err != nil {
			return err
		}
		if fresh == nil {
			return nil
		}
		checkIn = *fresh
		amNotified = false
		pmNotified = false
	}

	slot, clock := CurrentSlot(now)

	var target string
	var completed, notified bool
	var message string
	if slot == "pm" {
		target = prof.SkincareRoutine.PM
		completed = checkIn.PMCompleted
		notified = pmNotified
		message = PMMessage
	} else {
		target = prof.SkincareRoutine.AM
		completed = checkIn.AMCompleted
		notified = amNotified
		message = AMMessage
	}

	// Exact-minute string equality is the trigger condition.
	if target == "" || clock != target {
		return nil
	}
	if completed || notified {
		return nil
	}

	// Persist the at-most-once marker before the outward side effects.
	if err := s.store.SetNotificationFlag(ctx, prof.UserID, slot, true); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, prof.DeviceToken, NotificationTitle, message); err != nil {
			log.Printf("[Reminder] push failed user=%s slot=%s: %v", prof.UserID, slot, err)
		}
	}

	if s.mailer != nil && prof.Email != "" {
		if err := s.mailer.Send(ctx, services.ReminderSubject, prof.Email, services.ReminderBody); err != nil {
			log.Printf("[Reminder] email failed user=%s slot=%s: %v", prof.UserID, slot, err)
		}
	}

	log.Printf("[Reminder] fired user=%s slot=%s time=%s", prof.UserID, slot, clock)
	return nil
}
