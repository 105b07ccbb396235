package ports

import (
	"context"

	"jhitster/internal/domain"
)

// PackSource resolves selected pack ids into the session's song pool.
type PackSource interface {
	// LoadSongs returns the songs of every pack in packIDs, without duplicate ids.
	LoadSongs(ctx context.Context, packIDs []string) ([]domain.Song, error)
}
