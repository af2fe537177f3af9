package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zesthaus/event-booking/internal/config"
	"github.com/zesthaus/event-booking/internal/credential"
	"github.com/zesthaus/event-booking/internal/middleware"
	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/notify"
	"github.com/zesthaus/event-booking/internal/otp"
	"github.com/zesthaus/event-booking/internal/repository"
	"github.com/zesthaus/event-booking/internal/service"
)

// store is a minimal in-memory service.BookingStore.
type store struct {
	mu       sync.Mutex
	bookings []model.Booking
}

func (s *store) find(id string) int {
	for i, b := range s.bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (s *store) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.bookings {
		for _, r := range b.ExclusiveResources() {
			for _, taken := range o.ExclusiveResources() {
				if r == taken {
					return repository.ErrSeatTaken
				}
			}
		}
	}
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *store) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.find(id); i >= 0 {
		b := s.bookings[i]
		return &b, nil
	}
	return nil, repository.ErrNotFound
}

func (s *store) GetByPaymentRef(context.Context, string) (*model.Booking, error) {
	return nil, repository.ErrNotFound
}

func (s *store) List(context.Context) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Booking{}, s.bookings...), nil
}

func (s *store) ListByEmail(_ context.Context, email string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if b.Purchaser.Email == email {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *store) Claimed(ctx context.Context, ids []string) ([]string, error) {
	claims, _ := s.ListClaims(ctx)
	var out []string
	for _, c := range claims {
		for _, id := range ids {
			if c.ResourceID == id {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (s *store) ListClaims(context.Context) ([]repository.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Claim
	for _, b := range s.bookings {
		for _, seat := range b.ExclusiveSeats {
			out = append(out, repository.Claim{ResourceID: seat, BookingID: b.ID, Kind: model.ClaimSeat})
		}
		if b.TableAssignment != nil {
			out = append(out, repository.Claim{ResourceID: *b.TableAssignment, BookingID: b.ID, Kind: model.ClaimTable})
		}
	}
	return out, nil
}

func (s *store) MarkRedeemed(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return repository.ErrNotFound
	}
	if s.bookings[i].Redeemed {
		return repository.ErrAlreadyRedeemed
	}
	s.bookings[i].Redeemed = true
	s.bookings[i].RedeemedAt = &at
	return nil
}

func (s *store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.find(id)
	if i < 0 {
		return false, repository.ErrNotFound
	}
	redeemed := s.bookings[i].Redeemed
	s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)
	return redeemed, nil
}

type textEncoder struct{}

func (textEncoder) Encode(p credential.Payload) ([]byte, error) {
	s, err := credential.Marshal(p)
	return []byte(s), err
}

type mailbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *mailbox) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type users struct{}

func (users) FindOrCreate(_ context.Context, email, name string) (model.User, error) {
	return model.User{ID: 9, Email: email, Name: name}, nil
}

const adminToken = "staff-token"

type fixture struct {
	e     *echo.Echo
	store *store
	mail  *mailbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := &store{}
	mail := &mailbox{}
	bookings := service.NewBookingService(st, textEncoder{}, nil, zerolog.Nop())
	redeem := service.NewRedemptionService(st, zerolog.Nop())
	auth := service.NewAuthService(otp.NewMemoryStore(), users{}, mail, notify.NewComposer(config.MailConfig{}),
		service.AuthConfig{JWTSecret: "k", SessionTTL: time.Hour, CodeTTL: time.Minute, BcryptCost: bcrypt.MinCost},
		zerolog.Nop())

	bh := NewBookingHandler(bookings, time.Second)
	ah := NewAdminHandler(bookings, redeem, time.Second)
	auh := NewAuthHandler(auth, bookings, time.Second)

	e := echo.New()
	e.POST("/api/bookings", bh.Create)
	e.GET("/api/my-bookings", bh.MyBookings)
	e.GET("/api/booked-seats", bh.BookedSeats)
	e.GET("/api/booked-front-row-seats", bh.BookedFrontRowSeats)
	e.POST("/auth/send-otp", auh.SendOTP)
	e.POST("/auth/login", auh.Login)
	e.GET("/auth/me/bookings", auh.MyBookings, middleware.JWTAuth("k"))
	admin := e.Group("/admin", middleware.NewAccessGuard(adminToken).Middleware())
	admin.POST("/offline-booking", ah.OfflineBooking)
	admin.GET("/bookings", ah.List)
	admin.POST("/verify-ticket", ah.VerifyTicket)
	admin.DELETE("/bookings/:id", ah.Delete)
	return &fixture{e: e, store: st, mail: mail}
}

func (f *fixture) call(t *testing.T, method, path, body, auth string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (f *fixture) list(t *testing.T, path, auth string) []model.Booking {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out []model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const publicBody = `{"user":{"name":"Asha","email":"asha@example.com"},"price":1500,"paymentId":"pay_1","frontRowSeats":["1-5","1-6"],"frontRowCount":2,"generalCount":1}`

func TestPublicBooking(t *testing.T) {
	f := newFixture(t)

	code, body := f.call(t, http.MethodPost, "/api/bookings", publicBody, "")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Booking saved successfully!", body["message"])
	assert.NotEmpty(t, body["bookingId"])

	code, body = f.call(t, http.MethodPost, "/api/bookings",
		`{"user":{"email":"b@example.com"},"frontRowSeats":["1-6","1-7"]}`, "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", body["error"])
	assert.Equal(t, []any{"1-6"}, body["unavailable"])

	code, body = f.call(t, http.MethodGet, "/api/booked-seats", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"1-5", "1-6"}, body["booked_seats"])
	assert.Equal(t, []any{}, body["booked_tables"])

	code, body = f.call(t, http.MethodGet, "/api/booked-front-row-seats", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"1-5", "1-6"}, body["bookedSeats"])

	mine := f.list(t, "/api/my-bookings?email=ASHA@example.com", "")
	require.Len(t, mine, 1)
	assert.Equal(t, "pay_1", *mine[0].PaymentRef)
}

func TestPublicBooking_Errors(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name, body string
		status     int
		kind       string
	}{
		{"vip table", `{"user":{"email":"a@example.com"},"vipTable":"VIP-1"}`, http.StatusForbidden, "POLICY_VIOLATION"},
		{"vip seat", `{"user":{"email":"a@example.com"},"frontRowSeats":["VIP-2"]}`, http.StatusForbidden, "POLICY_VIOLATION"},
		{"bad email", `{"user":{"email":"nope"}}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative price", `{"user":{"email":"a@example.com"},"price":-1}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", `{"user":`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := f.call(t, http.MethodPost, "/api/bookings", tc.body, "")
			assert.Equal(t, tc.status, code)
			assert.Equal(t, tc.kind, body["error"])
		})
	}
	assert.Empty(t, f.store.bookings)

	code, _ := f.call(t, http.MethodGet, "/api/my-bookings", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	code, body := f.call(t, http.MethodGet, "/admin/bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["error"])

	code, _ = f.call(t, http.MethodGet, "/admin/bookings", "", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestAdminFlow(t *testing.T) {
	f := newFixture(t)
	auth := "Bearer " + adminToken

	code, body := f.call(t, http.MethodPost, "/admin/offline-booking",
		`{"user":{"name":"Box Office","email":"box@example.com"},"price":0,"vipTable":"VIP-1","frontRowSeats":["VIP-3"]}`, auth)
	require.Equal(t, http.StatusCreated, code)
	booking := body["booking"].(map[string]any)
	id := booking["id"].(string)
	assert.Equal(t, "ADMIN", booking["channel"])

	all := f.list(t, "/admin/bookings", auth)
	require.Len(t, all, 1)

	code, body = f.call(t, http.MethodPost, "/admin/verify-ticket", `{"bookingId":"`+id+`"}`, auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ticket is valid! Marked as used.", body["message"])

	code, body = f.call(t, http.MethodPost, "/admin/verify-ticket", `{"bookingId":"`+id+`"}`, auth)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_USED", body["error"])

	code, _ = f.call(t, http.MethodDelete, "/admin/bookings/"+id, "", auth)
	assert.Equal(t, http.StatusOK, code)
	code, body = f.call(t, http.MethodDelete, "/admin/bookings/"+id, "", auth)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["error"])

	code, _ = f.call(t, http.MethodPost, "/admin/verify-ticket", `{"bookingId":"fake"}`, auth)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestVerifyTicketAcceptsScannedCode(t *testing.T) {
	f := newFixture(t)
	auth := "Bearer " + adminToken

	code, body := f.call(t, http.MethodPost, "/api/bookings", publicBody, "")
	require.Equal(t, http.StatusCreated, code)
	id := body["bookingId"].(string)

	b, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	scanned, err := json.Marshal(map[string]string{"code": string(b.Credential)})
	require.NoError(t, err)

	code, body = f.call(t, http.MethodPost, "/admin/verify-ticket", string(scanned), auth)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, body["booking"].(map[string]any)["id"])
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	code, _ := f.call(t, http.MethodPost, "/api/bookings", publicBody, "")
	require.Equal(t, http.StatusCreated, code)

	code, _ = f.call(t, http.MethodPost, "/auth/send-otp", `{"email":"asha@example.com"}`, "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, f.mail.sent, 1)
	html := f.mail.sent[0].HTML
	start := strings.Index(html, "<b>") + 3
	otpCode := html[start : start+6]

	code, body := f.call(t, http.MethodPost, "/auth/login", `{"email":"asha@example.com","otp":"000000x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHORIZED", body["error"])

	code, body = f.call(t, http.MethodPost, "/auth/login", `{"email":"asha@example.com","otp":"`+otpCode+`"}`, "")
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	mine := f.list(t, "/auth/me/bookings", "Bearer "+token)
	require.Len(t, mine, 1)
	assert.Equal(t, "asha@example.com", mine[0].Purchaser.Email)

	code, _ = f.call(t, http.MethodGet, "/auth/me/bookings", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRespondError_Internal(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	rec := c.Response().Writer.(*httptest.ResponseRecorder)

	require.NoError(t, respondError(c, errors.New("db gone")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db gone")
}

type pingErr struct{ err error }

func (p pingErr) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := echo.New()
	e.GET("/ok", (&HealthHandler{DB: pingErr{}, Redis: rdb}).Health)
	e.GET("/down", (&HealthHandler{DB: pingErr{err: errors.New("refused")}}).Health)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)
}

