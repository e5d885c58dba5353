package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	Email          string
	HashedPassword string
	CreatedAt      time.Time
}

type NewUser struct {
	Username       string
	FullName       string
	Email          string
	HashedPassword string
}

type UserRepository interface {
	Create(ctx context.Context, u NewUser) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
