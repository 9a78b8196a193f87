package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/AnshRaj112/safeharbor-backend/internal/models"
	"github.com/AnshRaj112/safeharbor-backend/pkg/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// pqUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// UserService is the Postgres-backed account store. Accounts are anonymous:
// a username and an argon2id password hash, nothing else.
type UserService struct {
	db    *sql.DB
	cache *CacheService
}

// NewUserService builds the store; cache may be nil.
func NewUserService(db *sql.DB, cache *CacheService) *UserService {
	return &UserService{db: db, cache: cache}
}

// Create registers a new account. Usernames are unique ignoring case.
func (s *UserService) Create(ctx context.Context, username, password string) (*models.User, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: utils.NormalizeUsername(username), IsActive: true}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, user.Username, hash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Authenticate returns the active user matching the credentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, is_active
		FROM users WHERE LOWER(username) = $1 AND is_active = TRUE
	`, utils.NormalizeUsername(username)).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		// Burn the same time as a real check so unknown usernames aren't distinguishable.
		_, _ = utils.VerifyPassword(password, dummyHash())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID returns an active user or ErrNotFound. Profiles are cached briefly.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNotFound
	}

	var user models.User
	key := CacheKey("user", parsedID.String())
	if hit, _ := s.cache.Get(ctx, key, &user); hit {
		return &user, nil
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT id, username, created_at, is_active
		FROM users WHERE id = $1 AND is_active = TRUE
	`, parsedID).Scan(&user.ID, &user.Username, &user.CreatedAt, &user.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, user, DefaultCacheTTL)
	return &user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHashStr  string
)

func dummyHash() string {
	dummyHashOnce.Do(func() {
		dummyHashStr, _ = utils.HashPassword("safeharbor-timing-equalizer")
	})
	return dummyHashStr
}
