package bot

import (
	"encoding/json"
	"fmt"
	"os"
)

// Identity is a bot profile from the identities file.
type Identity struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"` // "easy", "good", "god"
}

// LoadIdentities reads bot profiles from a JSON array at path.
func LoadIdentities(path string) ([]Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot identities: %w", err)
	}
	var ids []Identity
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	for i, id := range ids {
		if id.Name == "" {
			return nil, fmt.Errorf("bot identity %d has no name", i)
		}
		if _, err := ParseLevel(id.Difficulty); err != nil {
			return nil, fmt.Errorf("bot identity %q: %w", id.Name, err)
		}
	}
	return ids, nil
}

// IdentityAt returns the profile for the index-th bot, cycling through pool. An empty pool
// yields numbered easy bots.
func IdentityAt(pool []Identity, index int) Identity {
	if len(pool) == 0 {
		return Identity{Name: fmt.Sprintf("Bot %d", index+1), Difficulty: LevelEasy.String()}
	}
	id := pool[index%len(pool)]
	if index >= len(pool) {
		id.Name = fmt.Sprintf("%s %d", id.Name, index/len(pool)+1)
	}
	return id
}
