package app

// MinPlayersToStartGame defines the minimum number of seated players required to start a round.
const MinPlayersToStartGame = 2

// DefaultMaxPlayers caps the roster when no limit is configured.
const DefaultMaxPlayers = 6

// MaxNameLength is the longest accepted display name, in characters.
const MaxNameLength = 24
