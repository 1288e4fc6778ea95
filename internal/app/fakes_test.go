package app

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"eslatma_bot/internal/domain/reminder"
	idb "eslatma_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

// fakeReminderRepo is an in-memory reminder.Repository mirroring the SQL
// backends' contract: mutations on a missing id report false, never an error.
type fakeReminderRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*reminder.Reminder
	addErr error
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{rows: map[int64]*reminder.Reminder{}}
}

func (f *fakeReminderRepo) seed(rem *reminder.Reminder) *reminder.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rem.ID = f.nextID
	if rem.Status == "" {
		rem.Status = reminder.StatusPending
	}
	cp := *rem
	f.rows[rem.ID] = &cp
	return rem
}

func (f *fakeReminderRepo) get(id int64) *reminder.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (f *fakeReminderRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeReminderRepo) Add(ctx context.Context, rem *reminder.Reminder) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.seed(rem)
	return nil
}

func (f *fakeReminderRepo) GetByID(ctx context.Context, id int64) (*reminder.Reminder, error) {
	if r := f.get(id); r != nil {
		return r, nil
	}
	return nil, idb.ErrReminderNotFound
}

func (f *fakeReminderRepo) DueForFirstDelivery(ctx context.Context, asOf time.Time) ([]*reminder.Reminder, error) {
	return f.selectWhere(func(r *reminder.Reminder) bool {
		return r.Status == reminder.StatusPending && !r.InitialReminderSent && !r.ScheduledTimeUTC.After(asOf)
	}), nil
}

func (f *fakeReminderRepo) DueForFollowUp(ctx context.Context, threshold time.Time) ([]*reminder.Reminder, error) {
	return f.selectWhere(func(r *reminder.Reminder) bool {
		return r.Status == reminder.StatusPending && r.InitialReminderSent && !r.FollowUpSent &&
			!r.IsRecurring() && !r.ScheduledTimeUTC.After(threshold)
	}), nil
}

func (f *fakeReminderRepo) AllPending(ctx context.Context) ([]*reminder.Reminder, error) {
	return f.selectWhere(func(r *reminder.Reminder) bool {
		return r.Status == reminder.StatusPending
	}), nil
}

func (f *fakeReminderRepo) ListByUser(ctx context.Context, userID int64, status reminder.Status) ([]*reminder.Reminder, error) {
	return f.selectWhere(func(r *reminder.Reminder) bool {
		return r.UserID == userID && r.Status == status
	}), nil
}

func (f *fakeReminderRepo) LatestAwaitingResponse(ctx context.Context, userID int64) (*reminder.Reminder, error) {
	awaiting := f.selectWhere(func(r *reminder.Reminder) bool {
		return r.UserID == userID && r.Status == reminder.StatusPending && r.FollowUpSent
	})
	if len(awaiting) == 0 {
		return nil, idb.ErrReminderNotFound
	}
	return awaiting[len(awaiting)-1], nil
}

func (f *fakeReminderRepo) MarkInitialSent(ctx context.Context, id int64) (bool, error) {
	return f.update(id, func(r *reminder.Reminder) { r.InitialReminderSent = true }), nil
}

func (f *fakeReminderRepo) MarkFollowUpSent(ctx context.Context, id int64) (bool, error) {
	return f.update(id, func(r *reminder.Reminder) { r.FollowUpSent = true }), nil
}

func (f *fakeReminderRepo) SetStatus(ctx context.Context, id int64, status reminder.Status) (bool, error) {
	return f.update(id, func(r *reminder.Reminder) { r.Status = status }), nil
}

func (f *fakeReminderRepo) Reschedule(ctx context.Context, id int64, newTime time.Time, resetFollowUp bool) (bool, error) {
	return f.update(id, func(r *reminder.Reminder) {
		r.ScheduledTimeUTC = newTime.UTC()
		r.Status = reminder.StatusPending
		r.FollowUpSent = false
		if resetFollowUp {
			r.InitialReminderSent = false
		}
	}), nil
}

func (f *fakeReminderRepo) Delete(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeReminderRepo) update(id int64, mutate func(*reminder.Reminder)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return false
	}
	mutate(r)
	return true
}

func (f *fakeReminderRepo) selectWhere(keep func(*reminder.Reminder) bool) []*reminder.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*reminder.Reminder
	for _, r := range f.rows {
		if keep(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTimeUTC.Equal(out[j].ScheduledTimeUTC) {
			return out[i].ScheduledTimeUTC.Before(out[j].ScheduledTimeUTC)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type sentMessage struct {
	chatID int64
	text   string
	opts   *telebot.SendOptions
}

// fakeClient records outgoing messages and can be told to fail for specific
// chats.
type fakeClient struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
}

func newFakeClient() *fakeClient {
	return &fakeClient{failFor: map[int64]error{}}
}

func (f *fakeClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[chatID]; ok {
		return err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, opts: options})
	return nil
}

func (f *fakeClient) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeClient) failChat(chatID int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFor[chatID] = err
}

func (f *fakeClient) healChat(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failFor, chatID)
}
