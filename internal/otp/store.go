// Package otp stores one-time login codes.  Codes are kept as bcrypt hashes
// and expire after a fixed TTL.  Every verification attempt is counted so a
// caller can retire a code after too many wrong guesses.
package otp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCode is returned when no unexpired code exists for an email, or when
// the code was consumed or replaced in the meantime.
var ErrNoCode = errors.New("otp: no active code")

// Store keeps at most one code hash per email.  Put replaces any previous
// code and resets its attempt count.
//
// Attempt counts a verification attempt and returns the stored hash together
// with the number of attempts made so far, this one included.  Consume
// removes the code only if hash is still the stored one; it returns
// ErrNoCode when another caller got there first.
type Store interface {
	Put(ctx context.Context, email, hash string, ttl time.Duration) error
	Attempt(ctx context.Context, email string) (hash string, attempts int, err error)
	Consume(ctx context.Context, email, hash string) error
	Delete(ctx context.Context, email string) error
}

// The attempts key inherits the code's remaining TTL on first use.
var attemptScript = redis.NewScript(`
local h = redis.call('GET', KEYS[1])
if not h then return false end
local n = redis.call('INCR', KEYS[2])
if n == 1 then
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl > 0 then redis.call('PEXPIRE', KEYS[2], ttl) end
end
return {h, n}
`)

var consumeScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('DEL', KEYS[1], KEYS[2])
	return 1
end
return 0
`)

// RedisStore keeps codes in Redis; expiry is left to the key TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "otp"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(email string) string      { return s.prefix + ":" + email }
func (s *RedisStore) triesKey(email string) string { return s.prefix + ":tries:" + email }

func (s *RedisStore) Put(ctx context.Context, email, hash string, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(email), hash, ttl)
		p.Del(ctx, s.triesKey(email))
		return nil
	})
	return err
}

func (s *RedisStore) Attempt(ctx context.Context, email string) (string, int, error) {
	res, err := attemptScript.Run(ctx, s.rdb, []string{s.key(email), s.triesKey(email)}).Slice()
	if errors.Is(err, redis.Nil) {
		return "", 0, ErrNoCode
	}
	if err != nil {
		return "", 0, err
	}
	if len(res) != 2 {
		return "", 0, errors.New("otp: unexpected attempt reply")
	}
	hash, _ := res[0].(string)
	n, _ := res[1].(int64)
	return hash, int(n), nil
}

func (s *RedisStore) Consume(ctx context.Context, email, hash string) error {
	n, err := consumeScript.Run(ctx, s.rdb, []string{s.key(email), s.triesKey(email)}, hash).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoCode
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, s.key(email), s.triesKey(email)).Err()
}

type memEntry struct {
	hash     string
	attempts int
	expires  time.Time
}

// MemoryStore is the in-process fallback used when Redis is unavailable.
// Expired entries are dropped on read and swept on every write.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, email, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[email] = memEntry{hash: hash, expires: now.Add(ttl)}
	return nil
}

// live returns the entry for email, dropping it when expired.  s.mu is held.
func (s *MemoryStore) live(email string) (memEntry, bool) {
	e, ok := s.entries[email]
	if !ok {
		return memEntry{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, email)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Attempt(_ context.Context, email string) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(email)
	if !ok {
		return "", 0, ErrNoCode
	}
	e.attempts++
	s.entries[email] = e
	return e.hash, e.attempts, nil
}

func (s *MemoryStore) Consume(_ context.Context, email, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(email)
	if !ok || e.hash != hash {
		return ErrNoCode
	}
	delete(s.entries, email)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	return nil
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// NewStore returns a RedisStore when rdb is set and a MemoryStore otherwise.
func NewStore(rdb *redis.Client) Store {
	if rdb != nil {
		return NewRedisStore(rdb, "otp")
	}
	return NewMemoryStore()
}
