package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"TruthMeterService/internal/models"
	"TruthMeterService/pkg/apperrors"
)

// Мок для хранилища секретов и журнала голосов
type MockSecretStore struct {
	mu        sync.Mutex
	secrets   map[uint]*models.SecretView
	votes     map[uint]map[string]models.VoteType
	authors   map[uint]string
	users     []models.UserStats
	nextID    uint
	lastLimit int
	failWith  error
}

func NewMockSecretStore() *MockSecretStore {
	return &MockSecretStore{
		secrets: make(map[uint]*models.SecretView),
		votes:   make(map[uint]map[string]models.VoteType),
		authors: make(map[uint]string),
	}
}

func (m *MockSecretStore) Insert(ctx context.Context, authorID, category, content string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return 0, m.failWith
	}
	m.nextID++
	m.secrets[m.nextID] = &models.SecretView{
		ID:        m.nextID,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.authors[m.nextID] = authorID
	return m.nextID, nil
}

func (m *MockSecretStore) List(ctx context.Context, category string, limit int) ([]models.SecretView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastLimit = limit
	if m.failWith != nil {
		return nil, m.failWith
	}

	views := make([]models.SecretView, 0)
	for _, v := range m.secrets {
		if category == "" || v.Category == category {
			views = append(views, *v)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID > views[j].ID })
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (m *MockSecretStore) Random(ctx context.Context) (*models.SecretView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.secrets {
		view := *v
		return &view, nil
	}
	return nil, apperrors.NotFound("random_secret", "no secrets yet")
}

func (m *MockSecretStore) Delete(ctx context.Context, secretID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.secrets[secretID]; !ok {
		return false, nil
	}
	delete(m.secrets, secretID)
	delete(m.votes, secretID)
	delete(m.authors, secretID)
	return true, nil
}

func (m *MockSecretStore) DeleteUserCascade(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for i, u := range m.users {
		if u.ID == userID {
			m.users = append(m.users[:i], m.users[i+1:]...)
			found = true
			break
		}
	}
	for id, author := range m.authors {
		if author == userID {
			delete(m.secrets, id)
			delete(m.votes, id)
			delete(m.authors, id)
		}
	}
	return found, nil
}

func (m *MockSecretStore) ListUsersWithStats(ctx context.Context) ([]models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.UserStats(nil), m.users...), nil
}

func (m *MockSecretStore) RecordVote(ctx context.Context, secretID uint, userID string, voteType models.VoteType) (models.Tally, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return models.Tally{}, false, m.failWith
	}
	secret, ok := m.secrets[secretID]
	if !ok {
		return models.Tally{}, false, apperrors.NotFound("record_vote", "secret not found")
	}
	if m.votes[secretID] == nil {
		m.votes[secretID] = make(map[string]models.VoteType)
	}

	recorded := false
	if _, voted := m.votes[secretID][userID]; !voted {
		m.votes[secretID][userID] = voteType
		if voteType == models.VoteTruth {
			secret.TruthVotes++
		} else {
			secret.LieVotes++
		}
		recorded = true
	}
	return models.Tally{TruthVotes: secret.TruthVotes, LieVotes: secret.LieVotes}, recorded, nil
}

func (m *MockSecretStore) VoteFor(ctx context.Context, secretID uint, userID string) (models.VoteType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vote, ok := m.votes[secretID][userID]
	return vote, ok, nil
}

// Мок для репозитория пользователей
type MockUserRepository struct {
	users      map[string]*models.User
	byNickname map[string]*models.User
	getCalls   int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:      make(map[string]*models.User),
		byNickname: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if _, exists := m.byNickname[user.Nickname]; exists {
		return apperrors.Conflict("create_user", "nickname already taken")
	}
	stored := *user
	m.users[user.ID] = &stored
	m.byNickname[user.Nickname] = &stored
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.getCalls++
	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("get_user_by_id", "user not found")
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByNickname(ctx context.Context, nickname string) (*models.User, error) {
	user, ok := m.byNickname[models.NormalizeNickname(nickname)]
	if !ok {
		return nil, apperrors.NotFound("get_user_by_nickname", "user not found")
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) (bool, error) {
	user, ok := m.users[id]
	if !ok {
		return false, nil
	}
	user.IsAdmin = isAdmin
	return true, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	user, ok := m.users[id]
	if !ok {
		return false, nil
	}
	user.PasswordHash = passwordHash
	return true, nil
}

// Мок для кэша профилей
type MockCacheRepository struct {
	users   map[string]*models.User
	deleted []string
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{users: make(map[string]*models.User)}
}

func (m *MockCacheRepository) SetUser(ctx context.Context, user *models.User) {
	copied := *user
	m.users[user.ID] = &copied
}

func (m *MockCacheRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrCacheMiss
	}
	copied := *user
	return &copied, nil
}

func (m *MockCacheRepository) DeleteUser(ctx context.Context, id string) {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
}
