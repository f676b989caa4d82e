package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// BotIDPrefix marks player ids that belong to bots.
const BotIDPrefix = "bot-"

type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "cautious", "bold"
}

var (
	botIdentities []BotIdentity
	botIDMap      map[string]bool
	loadOnce      sync.Once
	loadErr       error
)

// LoadIdentities loads the bot profiles from the given path.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}

		identities, err := ParseIdentities(data)
		if err != nil {
			loadErr = err
			return
		}

		botIdentities = identities
		botIDMap = make(map[string]bool, len(identities))
		for _, identity := range identities {
			botIDMap[identity.UserID] = true
		}
	})
	return loadErr
}

// ParseIdentities decodes a JSON identity pool. Missing or unprefixed ids are replaced
// with generated bot ids.
func ParseIdentities(data []byte) ([]BotIdentity, error) {
	var identities []BotIdentity
	if err := json.Unmarshal(data, &identities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	for i := range identities {
		if !strings.HasPrefix(identities[i].UserID, BotIDPrefix) {
			identities[i].UserID = newBotID()
		}
	}
	return identities, nil
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
func GetBotIdentity(index int) BotIdentity {
	if len(botIdentities) == 0 {
		return BotIdentity{
			UserID:      newBotID(),
			Username:    fmt.Sprintf("bot%d", index+1),
			DisplayName: fmt.Sprintf("Bot %d", index+1),
			Difficulty:  "cautious",
		}
	}
	return botIdentities[index%len(botIdentities)]
}

// IdentityByID returns the pool identity with the given id.
func IdentityByID(userID string) (BotIdentity, bool) {
	for _, identity := range botIdentities {
		if identity.UserID == userID {
			return identity, true
		}
	}
	return BotIdentity{}, false
}

// PoolSize returns the number of loaded identities.
func PoolSize() int {
	return len(botIdentities)
}

// IsBot reports whether the given user ID belongs to a bot.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, BotIDPrefix) || botIDMap[userID]
}

func newBotID() string {
	return BotIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
