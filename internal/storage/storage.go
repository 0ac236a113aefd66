package storage

import (
	"context"
	"errors"

	"github.com/avelichko/notesservice/internal/models"
)

var (
	// ErrNotFound covers both absent rows and rows owned by someone else,
	// so handlers cannot leak existence across owners.
	ErrNotFound = errors.New("not found")

	ErrDuplicateUsername = errors.New("username already taken")
)

type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash, role string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type NoteStore interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNote(ctx context.Context, ownerID, noteID int) (*models.Note, error)
	ListNotes(ctx context.Context, ownerID, skip, limit int, search string) ([]models.Note, error)
	UpdateNote(ctx context.Context, ownerID, noteID int, title, content *string) (*models.Note, error)
	DeleteNote(ctx context.Context, ownerID, noteID int) error
}
