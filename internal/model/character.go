package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Character is the entity that owns a stat tree.
type Character struct {
	ID   uuid.UUID
	Name string

	// BasicStat seeds the Basic node; zero means DefaultBasicStat.
	BasicStat float64

	stat *CharacterStat
}

// NewCharacter creates a character with a fresh ID and builds its stat tree.
func NewCharacter(name string, basicStat float64) (*Character, error) {
	c := &Character{
		ID:        uuid.New(),
		Name:      name,
		BasicStat: basicStat,
		stat:      NewCharacterStat(),
	}
	if err := c.stat.Setup(c); err != nil {
		return nil, fmt.Errorf("setting up stats for %q: %w", name, err)
	}
	c.stat.LogStatus()
	return c, nil
}

// Stat returns the character's stat tree.
func (c *Character) Stat() *CharacterStat {
	return c.stat
}
