package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/zesthaus/event-booking/internal/credential"
	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/notify"
	"github.com/zesthaus/event-booking/internal/repository"
)

// memStore mimics the MySQL repository: claims and payment references are
// checked and written under one lock, like the unique keys do.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]model.Booking
	claims   map[string]repository.Claim

	createErr error // forced error from Create
	hideClaim bool  // Claimed reports nothing, as if another writer got in between
}

func newMemStore() *memStore {
	return &memStore{bookings: map[string]model.Booking{}, claims: map[string]repository.Claim{}}
}

func (m *memStore) Create(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if b.PaymentRef != nil {
		for _, o := range m.bookings {
			if o.PaymentRef != nil && *o.PaymentRef == *b.PaymentRef {
				return repository.ErrDuplicatePayment
			}
		}
	}
	for _, r := range b.ExclusiveResources() {
		if _, ok := m.claims[r]; ok {
			return repository.ErrSeatTaken
		}
	}
	for _, s := range b.ExclusiveSeats {
		m.claims[s] = repository.Claim{ResourceID: s, BookingID: b.ID, Kind: model.ClaimSeat}
	}
	if b.TableAssignment != nil {
		m.claims[*b.TableAssignment] = repository.Claim{ResourceID: *b.TableAssignment, BookingID: b.ID, Kind: model.ClaimTable}
	}
	m.bookings[b.ID] = *b
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memStore) GetByPaymentRef(_ context.Context, ref string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.PaymentRef != nil && *b.PaymentRef == ref {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) sorted(filter func(model.Booking) bool) []model.Booking {
	out := []model.Booking{}
	for _, b := range m.bookings {
		if filter(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) List(_ context.Context) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(model.Booking) bool { return true }), nil
}

func (m *memStore) ListByEmail(_ context.Context, email string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(b model.Booking) bool { return b.Purchaser.Email == email }), nil
}

func (m *memStore) Claimed(_ context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideClaim {
		return nil, nil
	}
	var out []string
	for _, id := range ids {
		if _, ok := m.claims[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *memStore) ListClaims(_ context.Context) ([]repository.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repository.Claim, 0, len(m.claims))
	for _, c := range m.claims {
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) MarkRedeemed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if b.Redeemed {
		return repository.ErrAlreadyRedeemed
	}
	b.Redeemed = true
	b.RedeemedAt = &at
	m.bookings[id] = b
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	for k, c := range m.claims {
		if c.BookingID == id {
			delete(m.claims, k)
		}
	}
	delete(m.bookings, id)
	return b.Redeemed, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type fakeEncoder struct{ err error }

func (f fakeEncoder) Encode(p credential.Payload) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	text, err := credential.Marshal(p)
	return []byte(text), err
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []model.Booking
}

func (f *fakeDispatcher) Dispatch(_ context.Context, b model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, b)
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func (f *fakeUsers) FindOrCreate(_ context.Context, email, name string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.users == nil {
		f.users = map[string]model.User{}
	}
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	u := model.User{ID: uint64(len(f.users) + 1), Email: email, Name: name, CreatedAt: time.Now()}
	f.users[email] = u
	return u, nil
}

var errBoom = errors.New("boom")
