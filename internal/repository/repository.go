package repository

import (
	"aoe2scout/internal/repository/sqlite"
	"aoe2scout/internal/scout"
)

// NewMatchRepository returns a MatchRepository backed by SQLite at the given
// path. The path is typically <data_dir>/aoe2scout.sqlite.
func NewMatchRepository(path string) (scout.MatchRepository, error) {
	return sqlite.New(path)
}
