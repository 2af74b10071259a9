// Package memstore хранилище в памяти с теми же контрактами, что и pgx-репозитории.
// Используется без DATABASE_URL и в тестах.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"roleplay_bot/internal/domain"
)

type Store struct {
	Characters *CharacterStore
	Users      *UserStore
	Balances   *BalanceStore
	Streaks    *StreakStore
	Posts      *PostStore
	Servers    *ServerStore
	Audit      *AuditStore
}

func New() *Store {
	return &Store{
		Characters: &CharacterStore{rows: map[int64]*domain.Character{}},
		Users:      &UserStore{rows: map[int64]*domain.User{}},
		Balances:   &BalanceStore{rows: map[balanceKey]int64{}},
		Streaks:    &StreakStore{rows: map[streakKey]*domain.ServerUserStreak{}},
		Posts:      &PostStore{rows: map[postKey]*domain.Post{}},
		Servers:    &ServerStore{rows: map[int64]map[string]bool{}},
		Audit:      &AuditStore{},
	}
}

// --- characters

type CharacterStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*domain.Character
}

func (s *CharacterStore) GetByID(_ context.Context, id int64) (*domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return c.Clone(), nil
}

func (s *CharacterStore) ListByOwner(_ context.Context, ownerID int64) ([]*domain.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Character
	for _, c := range s.rows {
		if c.OwnerID == ownerID {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CharacterStore) ListTop(_ context.Context, limit int) ([]*domain.Character, error) {
	s.mu.RLock()
	out := make([]*domain.Character, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		if out[i].Exp != out[j].Exp {
			return out[i].Exp > out[j].Exp
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *CharacterStore) Create(_ context.Context, c *domain.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.rows[c.ID] = c.Clone()
	return nil
}

func (s *CharacterStore) Update(_ context.Context, c *domain.Character) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[c.ID]; !ok {
		return false, nil
	}
	s.rows[c.ID] = c.Clone()
	return true, nil
}

func (s *CharacterStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// --- users

type UserStore struct {
	mu   sync.Mutex
	rows map[int64]*domain.User
}

func (s *UserStore) GetOrCreate(_ context.Context, id int64, language string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		u = &domain.User{ID: id, PreferredLanguage: language, CreatedAt: time.Now()}
		s.rows[id] = u
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) Update(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.rows[u.ID] = &cp
	return nil
}

// --- balances

type balanceKey struct{ characterID, serverID int64 }

type BalanceStore struct {
	mu   sync.Mutex
	rows map[balanceKey]int64
}

func (s *BalanceStore) GetOrCreate(_ context.Context, characterID, serverID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := balanceKey{characterID, serverID}
	if _, ok := s.rows[k]; !ok {
		s.rows[k] = 0
	}
	return s.rows[k], nil
}

func (s *BalanceStore) Add(_ context.Context, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := balanceKey{characterID, serverID}
	s.rows[k] += amount
	return s.rows[k], nil
}

func (s *BalanceStore) Remove(_ context.Context, characterID, serverID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := balanceKey{characterID, serverID}
	v := s.rows[k] - amount
	if v < 0 {
		v = 0
	}
	s.rows[k] = v
	return v, nil
}

func (s *BalanceStore) Transfer(_ context.Context, fromID, toID, serverID, amount int64) (*domain.Transfer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	from := balanceKey{fromID, serverID}
	to := balanceKey{toID, serverID}
	if s.rows[from] < amount {
		return nil, domain.ErrInsufficientFunds
	}
	s.rows[from] -= amount
	s.rows[to] += amount
	return &domain.Transfer{
		FromCharacterID: fromID,
		ToCharacterID:   toID,
		ServerID:        serverID,
		Amount:          amount,
		FromBalance:     s.rows[from],
		ToBalance:       s.rows[to],
	}, nil
}

// --- streaks

type streakKey struct{ userID, serverID int64 }

type StreakStore struct {
	mu   sync.Mutex
	rows map[streakKey]*domain.ServerUserStreak
}

func (s *StreakStore) GetOrCreate(_ context.Context, userID, serverID int64) (*domain.ServerUserStreak, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := streakKey{userID, serverID}
	row, ok := s.rows[k]
	if !ok {
		row = &domain.ServerUserStreak{UserID: userID, ServerID: serverID}
		s.rows[k] = row
	}
	cp := *row
	return &cp, nil
}

func (s *StreakStore) Update(_ context.Context, row *domain.ServerUserStreak) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *row
	s.rows[streakKey{row.UserID, row.ServerID}] = &cp
	return nil
}

// --- posts

type postKey struct{ channelID, messageID int64 }

type PostStore struct {
	mu   sync.RWMutex
	rows map[postKey]*domain.Post
}

func (s *PostStore) Create(_ context.Context, p *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	cp.CharacterIDs = append([]int64(nil), p.CharacterIDs...)
	s.rows[postKey{p.ChannelID, p.MessageID}] = &cp
	return nil
}

func (s *PostStore) Get(_ context.Context, channelID, messageID int64) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[postKey{channelID, messageID}]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.CharacterIDs = append([]int64(nil), p.CharacterIDs...)
	return &cp, nil
}

func (s *PostStore) UpdateContent(_ context.Context, channelID, messageID int64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.rows[postKey{channelID, messageID}]; ok {
		p.Content = content
	}
	return nil
}

// Len для тестов
func (s *PostStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// --- servers

type ServerStore struct {
	mu   sync.Mutex
	rows map[int64]map[string]bool
}

func (s *ServerStore) EnabledPlugins(_ context.Context, serverID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name := range s.rows[serverID] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *ServerStore) SetPluginEnabled(_ context.Context, serverID int64, name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.rows[serverID]
	if !ok {
		set = map[string]bool{}
		s.rows[serverID] = set
	}
	if enabled {
		set[name] = true
	} else {
		delete(set, name)
	}
	return nil
}

// --- audit

type AuditStore struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (s *AuditStore) Create(_ context.Context, log *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *log
	cp.ID = int64(len(s.logs) + 1)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.logs = append(s.logs, &cp)
	return nil
}

// Logs копия журнала
func (s *AuditStore) Logs() []*domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.AuditLog(nil), s.logs...)
}
