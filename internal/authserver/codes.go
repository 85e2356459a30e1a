package authserver

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"shopgate/pkg/problems"
)

const codeKeyPrefix = "shopgate:authcode:"

// ErrInvalidCode covers unknown, expired and already redeemed codes.
var ErrInvalidCode = &problems.Error{Code: problems.EInvalidGrant, Msg: "authorization code is invalid or expired"}

// AuthorizationCode is the single-use record behind an issued code.
type AuthorizationCode struct {
	ClientID    string   `json:"client_id"`
	Tenant      string   `json:"tenant"`
	RedirectURI string   `json:"redirect_uri"`
	UserType    string   `json:"user_type"`
	Username    string   `json:"username"`
	Scopes      []string `json:"scopes"`
}

// CodeStore keeps authorization codes until they are redeemed or expire.
type CodeStore interface {
	Save(ctx context.Context, c AuthorizationCode) (string, error)
	// Take returns the record and deletes it atomically.
	Take(ctx context.Context, code string) (AuthorizationCode, error)
}

func newCode() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// RedisCodeStore stores codes as JSON with a TTL and redeems them with GETDEL.
type RedisCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCodeStore(client *redis.Client, ttl time.Duration) *RedisCodeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCodeStore{client: client, ttl: ttl}
}

func (s *RedisCodeStore) Save(ctx context.Context, c AuthorizationCode) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", problems.Wrap(err, problems.EInternal, "authserver.RedisCodeStore.Save")
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return "", problems.Wrap(err, problems.EInternal, "authserver.RedisCodeStore.Save")
	}
	if err := s.client.Set(ctx, codeKeyPrefix+code, payload, s.ttl).Err(); err != nil {
		return "", problems.Wrap(err, problems.EInternal, "authserver.RedisCodeStore.Save")
	}
	return code, nil
}

func (s *RedisCodeStore) Take(ctx context.Context, code string) (AuthorizationCode, error) {
	if code == "" {
		return AuthorizationCode{}, ErrInvalidCode
	}
	payload, err := s.client.GetDel(ctx, codeKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return AuthorizationCode{}, ErrInvalidCode
	}
	if err != nil {
		return AuthorizationCode{}, problems.Wrap(err, problems.EInternal, "authserver.RedisCodeStore.Take")
	}
	var c AuthorizationCode
	if err := json.Unmarshal(payload, &c); err != nil {
		return AuthorizationCode{}, problems.Wrap(err, problems.EInternal, "authserver.RedisCodeStore.Take")
	}
	return c, nil
}

type memoryCode struct {
	code    AuthorizationCode
	expires time.Time
}

// MemoryCodeStore is used when no REDIS_URL is configured. Codes do not
// survive a restart and are not shared between replicas.
type MemoryCodeStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	codes map[string]memoryCode
}

func NewMemoryCodeStore(ttl time.Duration, now func() time.Time) *MemoryCodeStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCodeStore{ttl: ttl, now: now, codes: map[string]memoryCode{}}
}

func (s *MemoryCodeStore) Save(_ context.Context, c AuthorizationCode) (string, error) {
	code, err := newCode()
	if err != nil {
		return "", problems.Wrap(err, problems.EInternal, "authserver.MemoryCodeStore.Save")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, v := range s.codes {
		if now.After(v.expires) {
			delete(s.codes, k)
		}
	}
	s.codes[code] = memoryCode{code: c, expires: now.Add(s.ttl)}
	return code, nil
}

func (s *MemoryCodeStore) Take(_ context.Context, code string) (AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.codes[code]
	if !ok {
		return AuthorizationCode{}, ErrInvalidCode
	}
	delete(s.codes, code)
	if s.now().After(v.expires) {
		return AuthorizationCode{}, ErrInvalidCode
	}
	return v.code, nil
}
