package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gw-currency-rates/internal/storages"
)

// mockCache - мок для RateCache
type mockCache struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
	gets   int
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

// mockProvider - мок для RateProvider
type mockProvider struct {
	mu         sync.Mutex
	pairRates  map[string]float64
	tables     map[string]map[string]float64
	err        error
	pairCalls  int
	tableCalls int
}

func (m *mockProvider) FetchPairRate(ctx context.Context, base, target string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pairCalls++
	if m.err != nil {
		return 0, m.err
	}
	rate, ok := m.pairRates[base+"/"+target]
	if !ok {
		return 0, errors.New("pair not configured")
	}
	return rate, nil
}

func (m *mockProvider) FetchFullTable(ctx context.Context, base string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tableCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.tables[base], nil
}

// mockUserStorage - мок для UserStorage
type mockUserStorage struct {
	users  map[string]*storages.User
	nextID int64
}

func newMockUserStorage() *mockUserStorage {
	return &mockUserStorage{users: make(map[string]*storages.User), nextID: 1}
}

func (m *mockUserStorage) CreateUser(ctx context.Context, user *storages.User) error {
	if _, ok := m.users[user.Username]; ok {
		return storages.ErrAlreadyExists
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStorage) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, storages.ErrNotFound
}

func (m *mockUserStorage) GetUserByEmail(ctx context.Context, email string) (*storages.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, storages.ErrNotFound
}

func (m *mockUserStorage) GetUserByID(ctx context.Context, userID int64) (*storages.User, error) {
	for _, u := range m.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, storages.ErrNotFound
}

// mockHistory - мок для HistoryStorage
type mockHistory struct {
	records []storages.ConversionRecord
	err     error
}

func (m *mockHistory) CreateConversion(ctx context.Context, record *storages.ConversionRecord) error {
	if m.err != nil {
		return m.err
	}
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *record)
	return nil
}

func (m *mockHistory) ListConversionsByUser(ctx context.Context, userID int64) ([]storages.ConversionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []storages.ConversionRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExchangeTime.After(out[j].ExchangeTime) })
	return out, nil
}

// mockNotifier - мок для ConversionNotifier
type mockNotifier struct {
	notified []storages.ConversionRecord
	err      error
}

func (m *mockNotifier) NotifyConversion(ctx context.Context, record *storages.ConversionRecord) error {
	m.notified = append(m.notified, *record)
	return m.err
}
