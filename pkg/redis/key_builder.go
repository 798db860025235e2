package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = environment
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyFightsAll() string {
	return kb.BuildKey(KeyFightsAll)
}

func (kb *KeyBuilder) KeyDivisionFights(divisionID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyDivisionFights, divisionID))
}

func (kb *KeyBuilder) KeyFightByID(fightID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFightByID, fightID))
}

func (kb *KeyBuilder) KeyTournamentsAll() string {
	return kb.BuildKey(KeyTournamentsAll)
}

func (kb *KeyBuilder) KeyOverview() string {
	return kb.BuildKey(KeyOverview)
}
