package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/avelichko/notesservice/internal/cache"
	"github.com/avelichko/notesservice/internal/models"
	"github.com/avelichko/notesservice/internal/storage"
)

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User), nextID: 1}
}

func (f *fakeUserStore) CreateUser(_ context.Context, username, passwordHash, role string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[username]; ok {
		return nil, storage.ErrDuplicateUsername
	}
	u := &models.User{ID: f.nextID, Username: username, PasswordHash: passwordHash, Role: role}
	f.nextID++
	f.users[username] = u
	return u, nil
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUserStore) ListUsers(_ context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNoteStore struct {
	mu        sync.Mutex
	notes     map[int]*models.Note
	nextID    int
	listCalls int
}

func newFakeNoteStore() *fakeNoteStore {
	return &fakeNoteStore{notes: make(map[int]*models.Note), nextID: 1}
}

func (f *fakeNoteStore) CreateNote(_ context.Context, note *models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	note.ID = f.nextID
	f.nextID++
	stored := *note
	f.notes[note.ID] = &stored
	return nil
}

func (f *fakeNoteStore) GetNote(_ context.Context, ownerID, noteID int) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNoteStore) ListNotes(_ context.Context, ownerID, skip, limit int, search string) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++

	var matched []models.Note
	for _, n := range f.notes {
		if n.OwnerID != ownerID {
			continue
		}
		if search != "" {
			term := strings.ToLower(search)
			if !strings.Contains(strings.ToLower(n.Title), term) &&
				!strings.Contains(strings.ToLower(n.Content), term) {
				continue
			}
		}
		matched = append(matched, *n)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if skip >= len(matched) {
		return nil, nil
	}
	matched = matched[skip:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeNoteStore) UpdateNote(ctx context.Context, ownerID, noteID int, title, content *string) (*models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	if title != nil {
		n.Title = *title
	}
	if content != nil {
		n.Content = *content
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNoteStore) DeleteNote(_ context.Context, ownerID, noteID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[noteID]
	if !ok || n.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(f.notes, noteID)
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if payload, ok := f.entries[key]; ok {
		return payload, nil
	}
	return nil, cache.ErrMiss
}

func (f *fakeCache) Set(_ context.Context, key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = payload
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, ownerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := fmt.Sprintf("notes:%d:", ownerID)
	for key := range f.entries {
		if strings.HasPrefix(key, prefix) {
			delete(f.entries, key)
		}
	}
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakePublisher) SendEmail(_ context.Context, address string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, address)
	return fmt.Sprintf("job-%d", len(f.sent)), nil
}
