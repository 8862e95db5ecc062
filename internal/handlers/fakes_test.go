package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/traderedge/apiserver/internal/store"
	"github.com/traderedge/apiserver/types"
)

// In-memory repository fakes implementing the services interfaces.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicateEmail
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdateSession(_ context.Context, id int, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.ActiveSessionID = sessionID
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) UpdatePlan(_ context.Context, id int, planType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PlanType = planType
	f.users[id] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeTradeRepo struct {
	mu     sync.Mutex
	nextID int
	trades map[int]types.Trade
}

func newFakeTradeRepo() *fakeTradeRepo {
	return &fakeTradeRepo{nextID: 1, trades: make(map[int]types.Trade)}
}

func (f *fakeTradeRepo) List(_ context.Context, userID, offset, limit int) ([]types.Trade, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []types.Trade
	for _, trade := range f.trades {
		if trade.UserID == userID {
			all = append(all, trade)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []types.Trade{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeTradeRepo) Get(_ context.Context, userID, id int) (types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade, ok := f.trades[id]
	if !ok || trade.UserID != userID {
		return types.Trade{}, store.ErrNotFound
	}
	return trade, nil
}

func (f *fakeTradeRepo) Create(_ context.Context, trade types.Trade) (types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade.ID = f.nextID
	f.nextID++
	f.trades[trade.ID] = trade
	return trade, nil
}

func (f *fakeTradeRepo) Update(_ context.Context, trade types.Trade) (types.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.trades[trade.ID]
	if !ok || existing.UserID != trade.UserID {
		return types.Trade{}, store.ErrNotFound
	}
	trade.AttachmentKey = existing.AttachmentKey
	f.trades[trade.ID] = trade
	return trade, nil
}

func (f *fakeTradeRepo) SetAttachmentKey(_ context.Context, userID, id int, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade, ok := f.trades[id]
	if !ok || trade.UserID != userID {
		return store.ErrNotFound
	}
	trade.AttachmentKey = key
	f.trades[id] = trade
	return nil
}

func (f *fakeTradeRepo) Delete(_ context.Context, userID, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trade, ok := f.trades[id]
	if !ok || trade.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.trades, id)
	return nil
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	nextID   int
	accounts map[int]types.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{nextID: 1, accounts: make(map[int]types.Account)}
}

func (f *fakeAccountRepo) List(_ context.Context, userID int) ([]types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	accounts := make([]types.Account, 0)
	for _, account := range f.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (f *fakeAccountRepo) Get(_ context.Context, userID, id int) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok || account.UserID != userID {
		return types.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) Create(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.ID = f.nextID
	f.nextID++
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account types.Account) (types.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.accounts[account.ID]
	if !ok || existing.UserID != account.UserID {
		return types.Account{}, store.ErrNotFound
	}
	f.accounts[account.ID] = account
	return account, nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, userID, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok || account.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.accounts, id)
	return nil
}

type fakeRiskPlanRepo struct {
	mu    sync.Mutex
	plans map[int]types.RiskPlan
}

func newFakeRiskPlanRepo() *fakeRiskPlanRepo {
	return &fakeRiskPlanRepo{plans: make(map[int]types.RiskPlan)}
}

func (f *fakeRiskPlanRepo) GetByUser(_ context.Context, userID int) (types.RiskPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plans[userID]
	if !ok {
		return types.RiskPlan{}, store.ErrNotFound
	}
	return plan, nil
}

func (f *fakeRiskPlanRepo) Upsert(_ context.Context, plan types.RiskPlan) (types.RiskPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan.ID = plan.UserID
	f.plans[plan.UserID] = plan
	return plan, nil
}

// memObjectStorage is an in-memory attachment store.
type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: make(map[string][]byte)}
}

func (m *memObjectStorage) EnsureBucket(context.Context) error { return nil }

func (m *memObjectStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjectStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjectStorage) Bucket() string { return "test-bucket" }

// withIdentity injects the subject and session claims the auth middleware
// would normally provide.
func withIdentity(userID int, sessionID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextSubjectKey, strconv.Itoa(userID))
			ctx = context.WithValue(ctx, contextSessionKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
