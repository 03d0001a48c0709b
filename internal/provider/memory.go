package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/propertyhub-backend/pkg/utils"
)

const memorySessionTTL = time.Hour

// MemoryProvider is a process-local provider for development and tests.
type MemoryProvider struct {
	mu       sync.Mutex
	params   utils.Argon2Params
	accounts map[string]*memoryAccount // by lower-cased email
	tokens   map[string]string         // access token -> user id
	tables   map[string][]Row
	resets   []ResetRequest
}

type memoryAccount struct {
	user User
	hash string
}

// ResetRequest records a password-reset email the provider would have sent.
type ResetRequest struct {
	Email      string
	RedirectTo string
}

func NewMemoryProvider() *MemoryProvider {
	return NewMemoryProviderWithParams(utils.DefaultArgon2Params)
}

// NewMemoryProviderWithParams lets tests use cheaper password hashing.
func NewMemoryProviderWithParams(params utils.Argon2Params) *MemoryProvider {
	return &MemoryProvider{
		params:   params,
		accounts: map[string]*memoryAccount{},
		tokens:   map[string]string{},
		tables:   map[string][]Row{},
	}
}

var _ Provider = (*MemoryProvider)(nil)

func (m *MemoryProvider) SignUp(_ context.Context, params SignUpParams) (*User, error) {
	key := strings.ToLower(strings.TrimSpace(params.Email))
	hash, err := utils.HashPasswordWithParams(params.Password, m.params)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[key]; exists {
		return nil, &Error{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	}
	now := time.Now().UTC()
	meta := make(map[string]interface{}, len(params.Metadata))
	for k, v := range params.Metadata {
		meta[k] = v
	}
	acc := &memoryAccount{
		user: User{ID: uuid.New().String(), Email: key, UserMetadata: meta, CreatedAt: &now},
		hash: hash,
	}
	m.accounts[key] = acc
	user := acc.user
	return &user, nil
}

func (m *MemoryProvider) SignInWithPassword(_ context.Context, email, password string) (*Session, error) {
	invalid := &Error{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}

	// hashing is slow; verify against a snapshot taken under the lock
	m.mu.Lock()
	acc, ok := m.accounts[strings.ToLower(strings.TrimSpace(email))]
	var hash string
	var user User
	if ok {
		hash, user = acc.hash, acc.user
	}
	m.mu.Unlock()
	if !ok {
		return nil, invalid
	}
	valid, err := utils.VerifyPassword(password, hash)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, invalid
	}

	token := uuid.New().String()
	m.mu.Lock()
	m.tokens[token] = user.ID
	m.mu.Unlock()

	return &Session{
		AccessToken:  token,
		RefreshToken: uuid.New().String(),
		TokenType:    "bearer",
		ExpiresIn:    int64(memorySessionTTL.Seconds()),
		ExpiresAt:    time.Now().Add(memorySessionTTL).Unix(),
		User:         &user,
	}, nil
}

func (m *MemoryProvider) SignOut(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[accessToken]; !ok {
		return invalidToken()
	}
	delete(m.tokens, accessToken)
	return nil
}

func (m *MemoryProvider) ResetPasswordForEmail(_ context.Context, email, redirectTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// unknown addresses are accepted silently, like the hosted provider
	if _, ok := m.accounts[strings.ToLower(strings.TrimSpace(email))]; ok {
		m.resets = append(m.resets, ResetRequest{Email: email, RedirectTo: redirectTo})
	}
	return nil
}

// ResetRequests returns the reset emails "sent" so far.
func (m *MemoryProvider) ResetRequests() []ResetRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ResetRequest(nil), m.resets...)
}

func (m *MemoryProvider) UpdateUser(_ context.Context, accessToken, password string) (*User, error) {
	hash, err := utils.HashPasswordWithParams(password, m.params)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountByToken(accessToken)
	if acc == nil {
		return nil, invalidToken()
	}
	acc.hash = hash
	user := acc.user
	return &user, nil
}

func (m *MemoryProvider) GetUser(_ context.Context, accessToken string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := m.accountByToken(accessToken)
	if acc == nil {
		return nil, invalidToken()
	}
	user := acc.user
	return &user, nil
}

func (m *MemoryProvider) accountByToken(token string) *memoryAccount {
	id, ok := m.tokens[token]
	if !ok {
		return nil
	}
	for _, acc := range m.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

func invalidToken() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
}

func (m *MemoryProvider) Insert(_ context.Context, table string, row Row) (Row, error) {
	stored := copyRow(row)
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.New().String()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprint(stored["id"])
	for _, existing := range m.tables[table] {
		if fmt.Sprint(existing["id"]) == id {
			return nil, &Error{
				Status:  http.StatusConflict,
				Code:    CodeUniqueViolation,
				Message: fmt.Sprintf("duplicate key value violates unique constraint \"%s_pkey\"", table),
			}
		}
	}
	m.tables[table] = append(m.tables[table], stored)
	return copyRow(stored), nil
}

func (m *MemoryProvider) Select(_ context.Context, table string, filter Filter) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := []Row{}
	for _, row := range m.tables[table] {
		if matches(row, filter.Eq) {
			rows = append(rows, copyRow(row))
		}
	}
	if filter.Order != "" {
		col, desc := parseOrder(filter.Order)
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return less(rows[j][col], rows[i][col])
			}
			return less(rows[i][col], rows[j][col])
		})
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(rows) {
			return []Row{}, nil
		}
		rows = rows[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(rows) {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (m *MemoryProvider) Update(_ context.Context, table string, filter Filter, patch Row) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := []Row{}
	for _, row := range m.tables[table] {
		if !matches(row, filter.Eq) {
			continue
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			row[k] = v
		}
		updated = append(updated, copyRow(row))
	}
	return updated, nil
}

func (m *MemoryProvider) Delete(_ context.Context, table string, filter Filter) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	deleted := []Row{}
	for _, row := range m.tables[table] {
		if matches(row, filter.Eq) {
			deleted = append(deleted, row)
			continue
		}
		kept = append(kept, row)
	}
	m.tables[table] = kept
	return deleted, nil
}

func matches(row Row, eq map[string]string) bool {
	for col, want := range eq {
		v, ok := row[col]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func less(a, b interface{}) bool {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		return fa < fb
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// parseOrder accepts PostgREST style "col", "col.asc" or "col.desc".
func parseOrder(order string) (string, bool) {
	col, dir, _ := strings.Cut(order, ".")
	return col, strings.HasPrefix(dir, "desc")
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
