package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"cuentas/internal/auth"
	"cuentas/internal/cache"
	apperrors "cuentas/internal/errors"
	"cuentas/internal/metrics"
	"cuentas/internal/model"
	"cuentas/internal/repository"
)

const (
	accountCacheTTL = 5 * time.Minute
	// a read that missed before a write committed may repopulate the key late;
	// the second invalidation clears it
	cacheInvalidationDelay = 500 * time.Millisecond

	minUsernameLength = 4
	minPasswordLength = 6
)

// CreateAccountInput carries the fields of a new account. Password is plaintext.
type CreateAccountInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Age       int
	Role      int
}

// UpdateAccountInput carries a partial update. Empty strings and zero numbers keep
// the stored value; an empty Password keeps the stored hash.
type UpdateAccountInput struct {
	ID        uint
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Age       int
	Role      int
}

// AccountService manages the account lifecycle. It performs no authorization;
// callers enforce self-or-administrator access.
type AccountService interface {
	ListAll(ctx context.Context) ([]model.Account, error)
	GetByID(ctx context.Context, id uint) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByRole(ctx context.Context, role int) ([]model.Account, error)
	Create(ctx context.Context, in CreateAccountInput) (uint, error)
	Update(ctx context.Context, id uint, in UpdateAccountInput) (*model.Account, error)
	Delete(ctx context.Context, id uint) (uint, error)
	ValidateCredentials(ctx context.Context, username, password string) (*model.Account, error)
}

// AccountCache is the read-through cache used for GetByID. *cache.Client implements it.
type AccountCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

var _ AccountCache = (*cache.Client)(nil)

type accountService struct {
	accounts  repository.AccountRepository
	deleter   AccountDeleter
	hasher    auth.PasswordHasher
	cache     AccountCache
	validate  *validator.Validate
	metrics   *metrics.Collector
	log       *zap.Logger
	dummyHash string

	invalidationDelay time.Duration
}

// NewAccountService creates a new account service. accountCache may be nil.
func NewAccountService(
	accounts repository.AccountRepository,
	deleter AccountDeleter,
	hasher auth.PasswordHasher,
	accountCache AccountCache,
	m *metrics.Collector,
	log *zap.Logger,
) (AccountService, error) {
	// verified against for unknown usernames so both rejections cost the same
	dummyHash, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	if accountCache == nil {
		accountCache = (*cache.Client)(nil)
	}

	return &accountService{
		accounts:  accounts,
		deleter:   deleter,
		hasher:    hasher,
		cache:     accountCache,
		validate:  validator.New(),
		metrics:   m,
		log:       log,
		dummyHash: dummyHash,

		invalidationDelay: cacheInvalidationDelay,
	}, nil
}

// cachedAccount keeps the hash that model.Account hides from JSON.
type cachedAccount struct {
	model.Account
	PasswordHash string `json:"password_hash"`
}

func (s *accountService) cacheKey(id uint) string {
	return fmt.Sprintf("account:%d", id)
}

func (s *accountService) ListAll(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, s.failure("list accounts", err)
	}
	return accounts, nil
}

// GetByID retrieves an account by ID with caching.
func (s *accountService) GetByID(ctx context.Context, id uint) (*model.Account, error) {
	var cached cachedAccount
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		account := cached.Account
		account.PasswordHash = cached.PasswordHash
		return &account, nil
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.failure("get account", err, zap.Uint("account_id", id))
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), cachedAccount{Account: *account, PasswordHash: account.PasswordHash}, accountCacheTTL)
	return account, nil
}

func (s *accountService) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.failure("get account by username", err, zap.String("username", username))
	}
	return account, nil
}

func (s *accountService) GetByRole(ctx context.Context, role int) ([]model.Account, error) {
	accounts, err := s.accounts.FindByRole(ctx, role)
	if err != nil {
		return nil, s.failure("get accounts by role", err, zap.Int("role", role))
	}
	return accounts, nil
}

// Create validates fail-fast, checks uniqueness, hashes the password and inserts.
func (s *accountService) Create(ctx context.Context, in CreateAccountInput) (uint, error) {
	if err := s.validateCreate(in); err != nil {
		return 0, err
	}

	if err := s.checkUnique(ctx, in.Username, in.Email, nil); err != nil {
		return 0, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, s.failure("hash password", err)
	}

	account := &model.Account{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Age:          in.Age,
		Role:         in.Role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// the pre-check lost a race; the unique index decides
		var conflictErr *apperrors.ConflictError
		if errors.As(err, &conflictErr) {
			s.metrics.ConflictsTotal.WithLabelValues(conflictErr.Field).Inc()
			return 0, conflictErr
		}
		return 0, s.failure("create account", err, zap.String("username", in.Username))
	}
	if account.ID == 0 {
		return 0, s.failure("create account", errors.New("account could not be created"), zap.String("username", in.Username))
	}

	s.metrics.AccountsCreatedTotal.Inc()
	s.log.Info("account created", zap.Uint("account_id", account.ID), zap.Int("role", account.Role))
	return account.ID, nil
}

func (s *accountService) validateCreate(in CreateAccountInput) error {
	switch {
	case utf8.RuneCountInString(in.Username) < minUsernameLength:
		return apperrors.NewValidationError(fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		return apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	case !s.validEmail(in.Email):
		return apperrors.NewValidationError("email address is not valid")
	}
	return nil
}

// Update validates every field, reporting all violations at once, then merges the
// input onto the stored account.
func (s *accountService) Update(ctx context.Context, id uint, in UpdateAccountInput) (*model.Account, error) {
	if id != in.ID {
		return nil, apperrors.ErrIDMismatch
	}

	existing, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, s.failure("load account", err, zap.Uint("account_id", id))
	}

	var messages []string
	if in.Username != "" && utf8.RuneCountInString(in.Username) < minUsernameLength {
		messages = append(messages, fmt.Sprintf("username must be at least %d characters", minUsernameLength))
	}
	if in.Email != "" && !s.validEmail(in.Email) {
		messages = append(messages, "email address format is not valid")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		messages = append(messages, "first name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		messages = append(messages, "last name is required")
	}
	if in.Age <= 0 {
		messages = append(messages, "age must be greater than zero")
	}
	if len(messages) > 0 {
		return nil, apperrors.NewValidationError(messages...)
	}

	var username, email string
	if in.Username != existing.Username {
		username = in.Username
	}
	if in.Email != existing.Email {
		email = in.Email
	}
	if err := s.checkUnique(ctx, username, email, &id); err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           id,
		Username:     in.Username,
		PasswordHash: existing.PasswordHash,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Age:          in.Age,
		Role:         in.Role,
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, s.failure("hash password", err, zap.Uint("account_id", id))
		}
		account.PasswordHash = hash
	}

	updated, err := s.accounts.Update(ctx, account)
	if err != nil {
		var conflictErr *apperrors.ConflictError
		switch {
		case errors.As(err, &conflictErr):
			s.metrics.ConflictsTotal.WithLabelValues(conflictErr.Field).Inc()
			return nil, conflictErr
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, err
		}
		return nil, s.failure("update account", err, zap.Uint("account_id", id))
	}

	s.invalidate(id)
	s.metrics.AccountsUpdatedTotal.Inc()
	s.log.Info("account updated", zap.Uint("account_id", id), zap.Bool("password_changed", in.Password != ""))
	return updated, nil
}

// Delete removes the account and all dependent records atomically.
func (s *accountService) Delete(ctx context.Context, id uint) (uint, error) {
	if _, err := s.accounts.FindByID(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, err
		}
		return 0, s.failure("load account", err, zap.Uint("account_id", id))
	}

	report, err := s.deleter.DeleteAccount(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return 0, err
		case errors.Is(err, apperrors.ErrDependentRecords):
			s.metrics.ConflictsTotal.WithLabelValues("account").Inc()
			return 0, &apperrors.ConflictError{
				Field:   "account",
				Message: "account cannot be deleted because it has related records (appointments, medical history)",
			}
		}
		return 0, s.failure("delete account", err, zap.Uint("account_id", id))
	}

	s.invalidate(id)
	return report.AccountID, nil
}

// ValidateCredentials returns the account when password matches. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *accountService) ValidateCredentials(ctx context.Context, username, password string) (*model.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			s.metrics.CredentialChecksTotal.WithLabelValues("rejected").Inc()
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, s.failure("validate credentials", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		s.metrics.CredentialChecksTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	s.metrics.CredentialChecksTotal.WithLabelValues("accepted").Inc()
	return account, nil
}

// invalidate drops the cached account now and once more after invalidationDelay.
// It does not use the request context, which may be cancelled by then.
func (s *accountService) invalidate(id uint) {
	key := s.cacheKey(id)
	s.cache.Delete(context.Background(), key)
	time.AfterFunc(s.invalidationDelay, func() {
		s.cache.Delete(context.Background(), key)
	})
}

// checkUnique consults the guard for the non-empty candidates, username first.
func (s *accountService) checkUnique(ctx context.Context, username, email string, excludeID *uint) error {
	if username != "" {
		taken, err := s.accounts.UsernameExists(ctx, username, excludeID)
		if err != nil {
			return s.failure("check username", err)
		}
		if taken {
			s.metrics.ConflictsTotal.WithLabelValues("username").Inc()
			return apperrors.NewConflict("username")
		}
	}
	if email != "" {
		taken, err := s.accounts.EmailExists(ctx, email, excludeID)
		if err != nil {
			return s.failure("check email", err)
		}
		if taken {
			s.metrics.ConflictsTotal.WithLabelValues("email").Inc()
			return apperrors.NewConflict("email")
		}
	}
	return nil
}

func (s *accountService) validEmail(email string) bool {
	return email != "" && s.validate.Var(email, "required,email") == nil
}

// failure logs err with context and wraps it for the caller.
func (s *accountService) failure(op string, err error, fields ...zap.Field) error {
	s.log.Error(op+" failed", append(fields, zap.Error(err))...)
	return fmt.Errorf("%s: %w", op, err)
}
