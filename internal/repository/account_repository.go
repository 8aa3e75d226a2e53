package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "cuentas/internal/errors"
	"cuentas/internal/model"
)

// UniquenessGuard checks candidate usernames and emails before they are written.
// excludeID, when set, ignores the row of the account being updated.
type UniquenessGuard interface {
	UsernameExists(ctx context.Context, username string, excludeID *uint) (bool, error)
	EmailExists(ctx context.Context, email string, excludeID *uint) (bool, error)
}

// AccountRepository defines account persistence operations.
type AccountRepository interface {
	UniquenessGuard
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) (*model.Account, error)
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Account, error)
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByRole(ctx context.Context, role int) ([]model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the account and assigns its id.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	return ClassifyConstraint(r.db.WithContext(ctx).Create(account).Error)
}

// Update merges the non-zero fields of account onto the stored row. An empty
// PasswordHash therefore keeps the stored hash.
func (r *accountRepository) Update(ctx context.Context, account *model.Account) (*model.Account, error) {
	var merged model.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&merged, account.ID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&merged).Omit("ID", "CreatedAt").Updates(account).Error; err != nil {
			return ClassifyConstraint(err)
		}
		return tx.First(&merged, account.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

// Delete removes exactly the account row. Dependent rows are not touched.
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Account{}, id)
	if res.Error != nil {
		return ClassifyConstraint(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// FindByUsername finds an account by its exact username.
func (r *accountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	var account model.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, notFound(err)
	}
	return &account, nil
}

// FindByRole lists the accounts holding role, in no particular order.
func (r *accountRepository) FindByRole(ctx context.Context, role int) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Where("role = ?", role).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// List lists every account.
func (r *accountRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) UsernameExists(ctx context.Context, username string, excludeID *uint) (bool, error) {
	return r.exists(ctx, "username = ?", username, excludeID)
}

func (r *accountRepository) EmailExists(ctx context.Context, email string, excludeID *uint) (bool, error) {
	return r.exists(ctx, "email = ?", email, excludeID)
}

func (r *accountRepository) exists(ctx context.Context, cond string, value string, excludeID *uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Account{}).Where(cond, value)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return err
}
