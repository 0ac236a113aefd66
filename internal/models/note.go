package models

type Note struct {
	ID      int
	OwnerID int
	Title   string
	Content string
}
