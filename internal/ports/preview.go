package ports

import (
	"context"

	"jhitster/internal/domain"
)

// PreviewResolver looks up a playable preview URL for a song.
// An empty URL with a nil error means the song has no preview.
type PreviewResolver interface {
	Resolve(ctx context.Context, song domain.Song) (string, error)
}

// PreviewRequester starts an asynchronous lookup on behalf of the host. The result is handed
// back to the host on its own goroutine, never from inside RequestPreview.
type PreviewRequester interface {
	RequestPreview(song domain.Song)
}
