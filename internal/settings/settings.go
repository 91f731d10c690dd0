// Package settings persists user preferences (the gateway token and the
// guild ordering) to a local key/value file between runs.
package settings

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/quillchat/quill/internal/discord"
)

const (
	keyToken          = "TOKEN"
	keyGuildPositions = "GUILD_POSITIONS"
)

// Store is a file-backed settings store. Reads come from the in-memory
// copy; every change is written through to the file.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// Open loads the settings file at path. A missing file yields an empty
// store; the file is created on first write.
func Open(path string) (*Store, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		values = make(map[string]string)
	}

	return &Store{path: path, values: values}, nil
}

// Token returns the stored gateway token, or "" when none is set.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[keyToken]
}

// SetToken persists a new gateway token.
func (s *Store) SetToken(token string) error {
	return s.set(keyToken, token)
}

// GuildPositions returns the persisted guild ordering.
func (s *Store) GuildPositions() []discord.Snowflake {
	s.mu.Lock()
	raw := s.values[keyGuildPositions]
	s.mu.Unlock()

	if raw == "" {
		return nil
	}

	var positions []discord.Snowflake
	for _, part := range strings.Split(raw, ",") {
		id, err := discord.ParseSnowflake(strings.TrimSpace(part))
		if err != nil || !id.IsValid() {
			continue
		}
		positions = append(positions, id)
	}
	return positions
}

// SetGuildPositions persists a new guild ordering.
func (s *Store) SetGuildPositions(positions []discord.Snowflake) error {
	parts := make([]string, len(positions))
	for i, id := range positions {
		parts[i] = id.String()
	}
	return s.set(keyGuildPositions, strings.Join(parts, ","))
}

func (s *Store) set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value

	snapshot := make(map[string]string, len(s.values))
	for k, v := range s.values {
		snapshot[k] = v
	}
	if err := godotenv.Write(snapshot, s.path); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
