package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/arklim/marketplace-auth/internal/core/domain"
	"github.com/arklim/marketplace-auth/internal/core/port"
	"github.com/arklim/marketplace-auth/internal/repository"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// memoryStore is an EphemeralStore with a controllable clock.
type memoryStore struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]memoryEntry
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		now:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		entries: make(map[string]memoryEntry),
	}
}

func (m *memoryStore) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *memoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !m.now.Before(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(key)
	return ok
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	entry, ok := m.live(key)
	if !ok {
		return "", repository.ErrNotFound
	}
	return entry.value, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *memoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.live(key)
	return ok, nil
}

func (m *memoryStore) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	entry, ok := m.live(key)
	if !ok {
		return 0, false, nil
	}
	if entry.expiresAt.IsZero() {
		return 0, true, nil
	}
	return entry.expiresAt.Sub(m.now), true, nil
}

func (m *memoryStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	entry, ok := m.live(key)
	if !ok {
		entry = memoryEntry{value: "0"}
		if ttl > 0 {
			entry.expiresAt = m.now.Add(ttl)
		}
	}
	n, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, err
	}
	n++
	entry.value = strconv.FormatInt(n, 10)
	m.entries[key] = entry
	return n, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []port.Message
	err      error
}

func (n *recordingNotifier) Send(_ context.Context, msg port.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *recordingNotifier) last() (port.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return port.Message{}, false
	}
	return n.messages[len(n.messages)-1], true
}

func (n *recordingNotifier) lastCode() string {
	msg, ok := n.last()
	if !ok {
		return ""
	}
	code, _ := msg.Data["OTP"].(string)
	return code
}

type accountKey struct {
	role  domain.Role
	value string
}

type fakeAccountRepo struct {
	mu      sync.Mutex
	byEmail map[accountKey]domain.Account
	findErr error
	creates int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byEmail: make(map[accountKey]domain.Account)}
}

func (r *fakeAccountRepo) put(account domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[accountKey{account.Role, account.Email}] = account
}

func (r *fakeAccountRepo) count(role domain.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.byEmail {
		if k.role == role {
			n++
		}
	}
	return n
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, role domain.Role, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	account, ok := r.byEmail[accountKey{role, email}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (r *fakeAccountRepo) FindByID(_ context.Context, role domain.Role, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for k, account := range r.byEmail {
		if k.role == role && account.ID == id {
			found := account
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accountKey{account.Role, account.Email}
	if _, exists := r.byEmail[key]; exists {
		return repository.ErrConflict
	}
	r.byEmail[key] = account
	r.creates++
	return nil
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, role domain.Role, email, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accountKey{role, email}
	account, ok := r.byEmail[key]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = hash
	r.byEmail[key] = account
	return nil
}

// plainHasher stores passwords with a marker prefix so tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "hashed:"+password, nil
}

type recordingPublisher struct {
	registered []domain.AccountRegisteredEvent
	resets     []domain.PasswordResetEvent
	err        error
}

func (p *recordingPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return p.err
}

func (p *recordingPublisher) PublishPasswordReset(_ context.Context, event domain.PasswordResetEvent) error {
	p.resets = append(p.resets, event)
	return p.err
}

type countingMetrics struct {
	issued   map[domain.EmailTemplate]int
	blocked  map[string]int
	verified map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		issued:   make(map[domain.EmailTemplate]int),
		blocked:  make(map[string]int),
		verified: make(map[string]int),
	}
}

func (m *countingMetrics) OTPIssued(template domain.EmailTemplate) { m.issued[template]++ }
func (m *countingMetrics) OTPBlocked(reason string)                { m.blocked[reason]++ }
func (m *countingMetrics) OTPVerified(result string)               { m.verified[result]++ }

// sequenceCodes returns codes in order, then repeats the last one.
func sequenceCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}
