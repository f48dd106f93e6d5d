package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

func (kb *KeyBuilder) KeyTournament(tournamentID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTournament, tournamentID))
}

func (kb *KeyBuilder) KeyChatIdempotency(channelID, senderID, clientMessageID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyChatIdempotency, channelID, senderID, clientMessageID))
}

// KeyFeedTopic is the pub/sub channel name carrying events for a feed topic
func (kb *KeyBuilder) KeyFeedTopic(topic string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFeedTopic, topic))
}
