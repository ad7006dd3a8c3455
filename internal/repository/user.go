package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type User struct {
	ID             string       `db:"id"`
	FirstName      string       `db:"first_name"`
	LastName       string       `db:"last_name"`
	Email          string       `db:"email"`
	HashedPassword string       `db:"hashed_password"`
	Status         string       `db:"status"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
}

const (
	UserAccountActiveStatus = "active"
	UserAccountLockedStatus = "locked"
)

type UserRepository interface {
	Insert(user *User, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*User, bool, error)
	GetByEmail(email string) (*User, bool, error)
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (repo *UserRepositoryImpl) Insert(user *User, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO users (first_name, last_name, email, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.HashedPassword,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.HashedPassword,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *UserRepositoryImpl) GetOne(id string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, hashed_password, status, created_at FROM users WHERE id=$1`

	err := repo.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, hashed_password, status, created_at FROM users WHERE email=$1`

	err := repo.db.GetContext(ctx, &user, query, email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}
