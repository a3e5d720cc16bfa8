package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/repository"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, id int64) (*user.User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, userError(err)
	}
	return toDomainUser(&u), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	var u User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, userError(err)
	}
	return toDomainUser(&u), nil
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	dbModel := User{
		Username:  u.Username,
		Email:     nullableString(u.Email),
		FullName:  nullableString(u.FullName),
		Phone:     nullableString(u.Phone),
		Address:   nullableString(u.Address),
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(&dbModel).Error
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return user.ErrUsernameTaken
	}
	if err != nil {
		return err
	}
	u.ID = dbModel.ID
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", at).Error
	})
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, p user.Profile) error {
	return r.updates(ctx, id, map[string]any{
		"email":     nullableString(p.Email),
		"full_name": nullableString(p.FullName),
		"phone":     nullableString(p.Phone),
		"address":   nullableString(p.Address),
	})
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.updates(ctx, id, map[string]any{"password": hash})
}

// updates writes columns of one user and reports user.ErrUserNotFound when
// no row matched.
func (r *userRepository) updates(ctx context.Context, id int64, columns map[string]any) error {
	var affected int64
	err := WrapError(func() error {
		res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(columns)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

func userError(err error) error {
	mapped := MapGormErrorToDomain(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return user.ErrUserNotFound
	}
	return mapped
}

func toDomainUser(u *User) *user.User {
	out := &user.User{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.Password,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
	if u.Email != nil {
		out.Email = *u.Email
	}
	if u.FullName != nil {
		out.FullName = *u.FullName
	}
	if u.Phone != nil {
		out.Phone = *u.Phone
	}
	if u.Address != nil {
		out.Address = *u.Address
	}
	return out
}
