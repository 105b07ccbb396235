package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jhitster/internal/domain"
)

var (
	ErrUnknownPack   = errors.New("unknown pack")
	ErrDuplicatePack = errors.New("duplicate pack id")
)

// Pack is the metadata shown when choosing what to play with.
type Pack struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SongCount   int    `json:"songCount"`
	YearRange   [2]int `json:"yearRange"`
	HasAudio    bool   `json:"hasAudio"`
}

type packFile struct {
	Pack
	Songs []domain.Song `json:"songs"`
}

// Catalog holds every pack known to the server. It is read-only once loaded and safe for
// concurrent use.
type Catalog struct {
	order []string
	packs map[string]packFile
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{packs: make(map[string]packFile)}
}

// LoadDir reads every *.json file in dir as a pack.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read packs dir: %w", err)
	}

	c := NewCatalog()
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read pack %s: %w", e.Name(), err)
		}
		var pf packFile
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pack %s: %w", e.Name(), err)
		}
		if pf.ID == "" {
			pf.ID = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		}
		if err := c.Add(pf.Pack, pf.Songs); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers a pack. Song count, year range and audio availability are derived from songs.
func (c *Catalog) Add(meta Pack, songs []domain.Song) error {
	if meta.ID == "" {
		return errors.New("pack id is empty")
	}
	if _, ok := c.packs[meta.ID]; ok {
		return fmt.Errorf("pack %q: %w", meta.ID, ErrDuplicatePack)
	}

	meta.SongCount = len(songs)
	meta.YearRange = [2]int{}
	meta.HasAudio = false
	for i, s := range songs {
		if s.Year <= 0 {
			return fmt.Errorf("pack %q: song %d has no year", meta.ID, s.ID)
		}
		if i == 0 || s.Year < meta.YearRange[0] {
			meta.YearRange[0] = s.Year
		}
		if s.Year > meta.YearRange[1] {
			meta.YearRange[1] = s.Year
		}
		if s.PreviewURL != "" {
			meta.HasAudio = true
		}
	}

	c.packs[meta.ID] = packFile{Pack: meta, Songs: append([]domain.Song(nil), songs...)}
	c.order = append(c.order, meta.ID)
	sort.Strings(c.order)
	return nil
}

// Packs lists pack metadata ordered by id.
func (c *Catalog) Packs() []Pack {
	out := make([]Pack, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.packs[id].Pack)
	}
	return out
}

// Pack returns the metadata of one pack.
func (c *Catalog) Pack(id string) (Pack, bool) {
	pf, ok := c.packs[id]
	return pf.Pack, ok
}

// LoadSongs concatenates the songs of the given packs in order. A song id seen in an earlier pack
// is skipped so ids stay unique across the pool.
func (c *Catalog) LoadSongs(ctx context.Context, packIDs []string) ([]domain.Song, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var songs []domain.Song
	seen := make(map[int]bool)
	for _, id := range packIDs {
		pf, ok := c.packs[id]
		if !ok {
			return nil, fmt.Errorf("pack %q: %w", id, ErrUnknownPack)
		}
		for _, s := range pf.Songs {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			songs = append(songs, s)
		}
	}
	return songs, nil
}
