package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"investhub/internal/adapters/email"
	"investhub/internal/domain/account"
	"investhub/internal/domain/contact"
	"investhub/internal/domain/outbox"
)

var errNotFound = errors.New("not found")

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// seqIDs returns a generator of distinct, ordered IDs.
func seqIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

// mockAccountStore implements every account store interface used here.
type mockAccountStore struct {
	accounts map[string]account.Account
	tokens   map[string]account.VerificationToken
	saves    int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts: make(map[string]account.Account),
		tokens:   make(map[string]account.VerificationToken),
	}
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return account.Account{}, errNotFound
	}
	return a, nil
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range m.accounts {
		if a.Email == account.NormalizeEmail(email) {
			return a, nil
		}
	}
	return account.Account{}, errNotFound
}

func (m *mockAccountStore) Save(_ context.Context, a account.Account) error {
	m.saves++
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountStore) Delete(_ context.Context, id string) error {
	delete(m.accounts, id)
	for k, t := range m.tokens {
		if t.AccountID == id {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *mockAccountStore) Count(_ context.Context) (int, error) {
	return len(m.accounts), nil
}

func (m *mockAccountStore) SaveVerificationToken(_ context.Context, t account.VerificationToken) error {
	m.tokens[t.Token] = t
	return nil
}

func (m *mockAccountStore) GetVerificationToken(_ context.Context, token string) (account.VerificationToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return account.VerificationToken{}, errNotFound
	}
	return t, nil
}

func (m *mockAccountStore) InvalidateTokensForAccount(_ context.Context, accountID string) error {
	for k, t := range m.tokens {
		if t.AccountID == accountID {
			t.Used = true
			m.tokens[k] = t
		}
	}
	return nil
}

// unusedTokens returns the live tokens of an account.
func (m *mockAccountStore) unusedTokens(accountID string) []account.VerificationToken {
	var out []account.VerificationToken
	for _, t := range m.tokens {
		if t.AccountID == accountID && !t.Used {
			out = append(out, t)
		}
	}
	return out
}

// mockOutboxStore implements the outbox interfaces used here.
type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
	purged  []time.Time
	saveErr error
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOutboxStore) PurgeDone(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, before)
	return 0, nil
}

func (m *mockOutboxStore) get(id string) outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[id]
}

func (m *mockOutboxStore) purgeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purged)
}

type mockContactStore struct {
	saved []contact.Submission
}

func (m *mockContactStore) Save(_ context.Context, s contact.Submission) error {
	m.saved = append(m.saved, s)
	return nil
}

func newMailDeps(sender email.Sender) (MailDeps, *mockOutboxStore) {
	store := newMockOutboxStore()
	return MailDeps{
		Outbox:     store,
		Sender:     sender,
		GenerateID: seqIDs("id"),
		Now:        fixedNow,
	}, store
}
