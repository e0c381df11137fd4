// Package db implements the internal/store contracts on SQLite.
package db

import "database/sql"

// Store bundles the per-contract SQLite stores over one database handle.
type Store struct {
	Tasks         *Tasks
	Projects      *Projects
	Users         *Users
	Hours         *Hours
	Notifications *Notifications
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		Tasks:         &Tasks{db: db},
		Projects:      &Projects{db: db},
		Users:         &Users{db: db},
		Hours:         &Hours{db: db},
		Notifications: &Notifications{db: db},
	}
}
