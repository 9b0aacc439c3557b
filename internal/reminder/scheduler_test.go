package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michellelee0718/porespective/internal/models"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type fakeStore struct {
	profiles   map[string]*models.UserProfile
	flagWrites []string // "userID/slot=value"
	resets     []string // userIDs passed to InitDailyCheckIn that caused a write
}

func newFakeStore(profiles ...*models.UserProfile) *fakeStore {
	s := &fakeStore{profiles: make(map[string]*models.UserProfile)}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *fakeStore) ListReminderCandidates(ctx context.Context) ([]models.UserProfile, error) {
	var out []models.UserProfile
	for _, p := range s.profiles {
		if p.HasRoutine() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) InitDailyCheckIn(ctx context.Context, userID, today string) (*models.RoutineCheckIn, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	if p.RoutineCheckIn.LastResetDate == today {
		return &p.RoutineCheckIn, nil
	}
	p.RoutineCheckIn = models.RoutineCheckIn{LastResetDate: today}
	p.AMNotification = false
	p.PMNotification = false
	s.resets = append(s.resets, userID)
	return &p.RoutineCheckIn, nil
}

func (s *fakeStore) SetNotificationFlag(ctx context.Context, userID, slot string, value bool) error {
	p := s.profiles[userID]
	if slot == "am" {
		p.AMNotification = value
	} else {
		p.PMNotification = value
	}
	s.flagWrites = append(s.flagWrites, userID+"/"+slot)
	return nil
}

type fakeNotifier struct {
	calls []string
}

func (n *fakeNotifier) Notify(ctx context.Context, token, title, body string) error {
	n.calls = append(n.calls, body)
	return nil
}

type fakeMailer struct {
	calls []string
}

func (m *fakeMailer) Send(ctx context.Context, subject, toEmail, message string) error {
	m.calls = append(m.calls, toEmail)
	return nil
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	require.NoError(t, err)
	return ts
}

func profileWithRoutine(am, pm string, today string) *models.UserProfile {
	return &models.UserProfile{
		UserID:          "user-1",
		Email:           "user@example.com",
		SkincareRoutine: models.SkincareRoutine{AM: am, PM: pm},
		RoutineCheckIn:  models.RoutineCheckIn{LastResetDate: today},
	}
}

func TestCurrentSlot(t *testing.T) {
	tests := []struct {
		now   string
		slot  string
		clock string
	}{
		{"2024-05-15 08:00", "am", "8:00"},
		{"2024-05-15 08:05", "am", "8:05"},
		{"2024-05-15 12:30", "am", "12:30"},
		{"2024-05-15 13:00", "pm", "1:00"},
		{"2024-05-15 22:00", "pm", "10:00"},
		{"2024-05-15 23:59", "pm", "11:59"},
		{"2024-05-15 00:07", "am", "0:07"},
	}
	for _, tt := range tests {
		slot, clock := CurrentSlot(at(t, tt.now))
		assert.Equal(t, tt.slot, slot, tt.now)
		assert.Equal(t, tt.clock, clock, tt.now)
	}
}

func TestEvaluateFiresAMOnce(t *testing.T) {
	now := at(t, "2024-05-15 08:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	s := New(store, notifier, mailer, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Equal(t, []string{"user-1/am"}, store.flagWrites)
	assert.True(t, prof.AMNotification)
	assert.Equal(t, []string{AMMessage}, notifier.calls)
	assert.Equal(t, []string{"user@example.com"}, mailer.calls)

	// Second tick in the same minute: flag is set, nothing fires again.
	s.Tick(context.Background())
	assert.Len(t, store.flagWrites, 1)
	assert.Len(t, notifier.calls, 1)
	assert.Len(t, mailer.calls, 1)
}

func TestEvaluateAlreadyNotifiedIsNoOp(t *testing.T) {
	now := at(t, "2024-05-15 08:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	prof.AMNotification = true
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	s := New(store, notifier, mailer, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Empty(t, store.flagWrites)
	assert.Empty(t, notifier.calls)
	assert.Empty(t, mailer.calls)
}

func TestEvaluateCompletedIsNoOp(t *testing.T) {
	now := at(t, "2024-05-15 08:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	prof.RoutineCheckIn.AMCompleted = true
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	s := New(store, notifier, mailer, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Empty(t, store.flagWrites)
	assert.Empty(t, notifier.calls)
	assert.Empty(t, mailer.calls)
}

func TestEvaluatePMSlot(t *testing.T) {
	now := at(t, "2024-05-15 22:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	mailer := &fakeMailer{}
	s := New(store, notifier, mailer, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Equal(t, []string{"user-1/pm"}, store.flagWrites)
	assert.True(t, prof.PMNotification)
	assert.Equal(t, []string{PMMessage}, notifier.calls)
}

func TestEvaluateOnlyCurrentSlot(t *testing.T) {
	// At 22:00 only the PM slot is evaluated: an un-notified AM slot with a
	// matching time string must not fire.
	now := at(t, "2024-05-15 22:00")
	prof := profileWithRoutine("10:00", "", "2024-05-15")
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	s := New(store, notifier, &fakeMailer{}, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Empty(t, store.flagWrites)
	assert.Empty(t, notifier.calls)
}

func TestEvaluateNoMatchNoWrite(t *testing.T) {
	now := at(t, "2024-05-15 08:01")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	s := New(store, notifier, &fakeMailer{}, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Empty(t, store.flagWrites)
	assert.Empty(t, notifier.calls)
}

func TestEvaluateStaleCheckInResetsFirst(t *testing.T) {
	// Yesterday's completed flags must not suppress today's reminder.
	now := at(t, "2024-05-15 08:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-14")
	prof.RoutineCheckIn.AMCompleted = true
	prof.AMNotification = true
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	s := New(store, notifier, &fakeMailer{}, WithClock(fixedClock{now}))

	s.Tick(context.Background())

	assert.Equal(t, []string{"user-1"}, store.resets)
	assert.Equal(t, "2024-05-15", prof.RoutineCheckIn.LastResetDate)
	assert.False(t, prof.RoutineCheckIn.AMCompleted)
	assert.Equal(t, []string{"user-1/am"}, store.flagWrites)
	assert.Equal(t, []string{AMMessage}, notifier.calls)
}

func TestResetAllFreshRecordIsPureRead(t *testing.T) {
	now := at(t, "2024-05-15 07:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-15")
	prof.RoutineCheckIn.AMCompleted = true
	store := newFakeStore(prof)
	s := New(store, &fakeNotifier{}, &fakeMailer{}, WithClock(fixedClock{now}))

	s.ResetAll(context.Background())

	assert.Empty(t, store.resets)
	assert.True(t, prof.RoutineCheckIn.AMCompleted, "current record must not be rewritten")
}

func TestResetAllStaleRecord(t *testing.T) {
	now := at(t, "2024-05-15 07:00")
	prof := profileWithRoutine("8:00", "10:00", "2024-05-14")
	prof.RoutineCheckIn.AMCompleted = true
	prof.RoutineCheckIn.PMCompleted = true
	prof.AMNotification = true
	prof.PMNotification = true
	store := newFakeStore(prof)
	s := New(store, &fakeNotifier{}, &fakeMailer{}, WithClock(fixedClock{now}))

	s.ResetAll(context.Background())

	assert.Equal(t, []string{"user-1"}, store.resets)
	assert.Equal(t, models.RoutineCheckIn{LastResetDate: "2024-05-15"}, prof.RoutineCheckIn)
	assert.False(t, prof.AMNotification)
	assert.False(t, prof.PMNotification)
}

func TestRunRejectsOversizedInterval(t *testing.T) {
	s := New(newFakeStore(), &fakeNotifier{}, &fakeMailer{}, WithInterval(2*time.Minute))
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds one minute")
}

func TestRunCancelable(t *testing.T) {
	s := New(newFakeStore(), &fakeNotifier{}, &fakeMailer{}, WithInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestEvaluateUnconfiguredProfile(t *testing.T) {
	now := at(t, "2024-05-15 08:00")
	prof := &models.UserProfile{UserID: "user-2"}
	store := newFakeStore(prof)
	notifier := &fakeNotifier{}
	s := New(store, notifier, &fakeMailer{}, WithClock(fixedClock{now}))

	require.NoError(t, s.Evaluate(context.Background(), prof, now))
	assert.Empty(t, store.flagWrites)
	assert.Empty(t, notifier.calls)
}
