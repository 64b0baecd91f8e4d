package services

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/dbx"
	"github.com/dmitrijs2005/netguard/internal/logging"
	"github.com/dmitrijs2005/netguard/internal/server/auth"
	"github.com/dmitrijs2005/netguard/internal/server/config"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/detections"
	"github.com/dmitrijs2005/netguard/internal/server/repositories/sessions"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- helpers ---

// newTxDB returns an in-memory SQLite handle. The fakes ignore it; it only
// has to support BEGIN/COMMIT/ROLLBACK for dbx.WithTx.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestHasher(t *testing.T) *auth.Hasher {
	t.Helper()
	h, err := auth.NewHasher(auth.AlgorithmArgon2id)
	require.NoError(t, err)
	return h.WithArgon2Params(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 8, KeyLen: 16})
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:      "test-secret",
		SessionTTL:     time.Hour,
		AccessTokenTTL: time.Minute,
	}
}

type harness struct {
	store    *memStore
	db       *sql.DB
	hasher   *auth.Hasher
	accounts *AccountService
	sessions *SessionService
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	h := &harness{store: newMemStore(), db: newTxDB(t), hasher: newTestHasher(t)}
	rm := &fakeRepoManager{store: h.store}
	h.accounts = NewAccountService(h.db, rm, h.hasher, cfg, logging.Nop{})
	h.sessions = NewSessionService(h.db, rm, h.accounts, cfg, nil, logging.Nop{})
	return h
}

// seed stores an account with password "pw" directly, bypassing the service.
func (h *harness) seed(t *testing.T, name string, role models.Role) *models.Account {
	t.Helper()
	hash, err := h.hasher.Hash("pw")
	require.NoError(t, err)
	acc, err := (&fakeAccounts{h.store}).Create(context.Background(), &models.Account{
		UserName: name, Email: name + "@example.com", PasswordHash: hash, Role: role, Active: true,
	})
	require.NoError(t, err)
	return acc
}

// --- in-memory store ---

type memStore struct {
	mu         sync.Mutex
	seq        int
	accounts   map[string]*models.Account
	detections []*models.Detection
	sessions   map[string]*models.Session
	clock      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[string]*models.Account{},
		sessions: map[string]*models.Session{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *memStore) detectionsOf(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.detections {
		if d.AccountID == accountID {
			n++
		}
	}
	return n
}

func (s *memStore) sessionsOf(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ss := range s.sessions {
		if ss.AccountID == accountID {
			n++
		}
	}
	return n
}

func (s *memStore) superAdmins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.accounts {
		if a.Role == models.RoleSuperAdmin {
			n++
		}
	}
	return n
}

type fakeRepoManager struct {
	store *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository       { return &fakeAccounts{m.store} }
func (m *fakeRepoManager) Detections(dbx.DBTX) detections.Repository   { return &fakeDetections{m.store} }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository       { return &fakeSessions{m.store} }

type fakeAccounts struct{ s *memStore }

func clone(a *models.Account) *models.Account {
	c := *a
	return &c
}

// uniqueCheck mirrors the table's unique constraints.
func (f *fakeAccounts) uniqueCheck(a *models.Account) error {
	for id, o := range f.s.accounts {
		if id == a.ID {
			continue
		}
		if o.UserName == a.UserName || o.Email == a.Email {
			return common.ErrConflict
		}
		if a.Role == models.RoleSuperAdmin && o.Role == models.RoleSuperAdmin {
			return common.ErrSuperAdminLimitExceeded
		}
	}
	return nil
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.uniqueCheck(a); err != nil {
		return nil, err
	}
	a.ID = f.s.nextID("acc")
	a.CreatedAt = f.s.tick()
	f.s.accounts[a.ID] = clone(a)
	return a, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	a, ok := f.s.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(a), nil
}

func (f *fakeAccounts) GetByUserName(_ context.Context, name string) (*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, a := range f.s.accounts {
		if a.UserName == name {
			return clone(a), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccounts) FindConflict(_ context.Context, name, email, excludeID string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, a := range f.s.accounts {
		if id != excludeID && (a.UserName == name || a.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAccounts) CountByRoles(_ context.Context, roles ...models.Role) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, a := range f.s.accounts {
		if slices.Contains(roles, a.Role) {
			n++
		}
	}
	return n, nil
}

func (f *fakeAccounts) ListByRoles(_ context.Context, roles ...models.Role) ([]*models.Account, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.Account
	for _, a := range f.s.accounts {
		if slices.Contains(roles, a.Role) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeAccounts) Update(_ context.Context, a *models.Account) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur, ok := f.s.accounts[a.ID]
	if !ok {
		return common.ErrorNotFound
	}
	if err := f.uniqueCheck(a); err != nil {
		return err
	}
	cur.UserName, cur.Email, cur.Role = a.UserName, a.Email, a.Role
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, hash string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur, ok := f.s.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.accounts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.accounts, id)
	return nil
}

type fakeDetections struct{ s *memStore }

func (f *fakeDetections) Create(_ context.Context, d *models.Detection) (*models.Detection, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.accounts[d.AccountID]; !ok {
		return nil, fmt.Errorf("db error: foreign key violation")
	}
	d.ID = f.s.nextID("det")
	d.Timestamp = f.s.tick()
	c := *d
	f.s.detections = append(f.s.detections, &c)
	return d, nil
}

func (f *fakeDetections) newestFirst(keep func(*models.Detection) bool, limit int) []*models.Detection {
	var out []*models.Detection
	for i := len(f.s.detections) - 1; i >= 0; i-- {
		d := f.s.detections[i]
		if keep(d) {
			c := *d
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func (f *fakeDetections) ListByAccount(_ context.Context, accountID string, limit int) ([]*models.Detection, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.newestFirst(func(d *models.Detection) bool { return d.AccountID == accountID }, limit), nil
}

func (f *fakeDetections) Recent(_ context.Context, limit int) ([]*models.Detection, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.newestFirst(func(*models.Detection) bool { return true }, limit), nil
}

func (f *fakeDetections) Stats(_ context.Context, accountID string) (models.DetectionStats, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var st models.DetectionStats
	for _, d := range f.s.detections {
		if accountID != "" && d.AccountID != accountID {
			continue
		}
		st.Total++
		if d.Prediction == common.NormalLabel {
			st.Normal++
		}
	}
	st.Attack = st.Total - st.Normal
	return st, nil
}

func (f *fakeDetections) DeleteByAccount(_ context.Context, accountID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	kept := f.s.detections[:0]
	var n int64
	for _, d := range f.s.detections {
		if d.AccountID == accountID {
			n++
			continue
		}
		kept = append(kept, d)
	}
	f.s.detections = kept
	return n, nil
}

type fakeSessions struct{ s *memStore }

func (f *fakeSessions) Create(_ context.Context, ss *models.Session) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ss.CreatedAt = f.s.tick()
	c := *ss
	f.s.sessions[ss.Token] = &c
	return nil
}

func (f *fakeSessions) Find(_ context.Context, token string) (*models.Session, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	ss, ok := f.s.sessions[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *ss
	return &c, nil
}

func (f *fakeSessions) Delete(_ context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.sessions, token)
	return nil
}

func (f *fakeSessions) DeleteByAccount(_ context.Context, accountID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for tok, ss := range f.s.sessions {
		if ss.AccountID == accountID {
			delete(f.s.sessions, tok)
		}
	}
	return nil
}
