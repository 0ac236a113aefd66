package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/avelichko/notesservice/internal/models"
)

const duplicateEntryErrNo = 1062

// Open connects to MySQL and creates the schema if it does not exist yet.
func Open(user, password, host, dbName string) (*sql.DB, error) {
	// clientFoundRows makes RowsAffected count matched rows rather than
	// changed ones, so zero always means the row is gone.
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&clientFoundRows=true", user, password, host, dbName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	createUsersTable := `CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'user',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB;`

	createNotesTable := `CREATE TABLE IF NOT EXISTS notes (
		id INT AUTO_INCREMENT PRIMARY KEY,
		owner_id INT NOT NULL,
		title TEXT,
		content TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB;`

	if _, err := db.Exec(createUsersTable); err != nil {
		return nil, fmt.Errorf("create users table: %w", err)
	}
	if _, err := db.Exec(createNotesTable); err != nil {
		return nil, fmt.Errorf("create notes table: %w", err)
	}

	return db, nil
}

// MySQL implements UserStore and NoteStore over database/sql.
type MySQL struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db}
}

func (s *MySQL) CreateUser(ctx context.Context, username, passwordHash, role string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		username, passwordHash, role)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == duplicateEntryErrNo {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user id: %w", err)
	}
	return &models.User{ID: int(id), Username: username, PasswordHash: passwordHash, Role: role}, nil
}

func (s *MySQL) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role FROM users WHERE username = ?", username)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

func (s *MySQL) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, username, password_hash, role FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *MySQL) CreateNote(ctx context.Context, note *models.Note) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (owner_id, title, content) VALUES (?, ?, ?)",
		note.OwnerID, note.Title, note.Content)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert note id: %w", err)
	}
	note.ID = int(id)
	return nil
}

func (s *MySQL) GetNote(ctx context.Context, ownerID, noteID int) (*models.Note, error) {
	var n models.Note
	row := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, title, content FROM notes WHERE id = ? AND owner_id = ?",
		noteID, ownerID)
	if err := row.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select note: %w", err)
	}
	return &n, nil
}

func (s *MySQL) ListNotes(ctx context.Context, ownerID, skip, limit int, search string) ([]models.Note, error) {
	query := "SELECT id, owner_id, title, content FROM notes WHERE owner_id = ?"
	args := []interface{}{ownerID}

	if search != "" {
		query += " AND (title LIKE ? OR content LIKE ?)"
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Content); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *MySQL) UpdateNote(ctx context.Context, ownerID, noteID int, title, content *string) (*models.Note, error) {
	note, err := s.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		note.Title = *title
	}
	if content != nil {
		note.Content = *content
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ? WHERE id = ? AND owner_id = ?",
		note.Title, note.Content, noteID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update note rows: %w", err)
	}
	if affected == 0 {
		// The note was deleted between the read and the write.
		return nil, ErrNotFound
	}
	return note, nil
}

func (s *MySQL) DeleteNote(ctx context.Context, ownerID, noteID int) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notes WHERE id = ? AND owner_id = ?", noteID, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
