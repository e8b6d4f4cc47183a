package c4fast

import "errors"

// WebSocketState is the lifecycle of a single realtime connection.
type WebSocketState string

const (
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateFailed       WebSocketState = "failed"
)

func (s WebSocketState) String() string { return string(s) }

var (
	ErrNotConnected = errors.New("websocket not connected")
	ErrAlreadyUsed  = errors.New("websocket already used; create a new one per match")
)

// LeaderboardEntry is one row of GET /leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}

// Stats is the analytics summary from GET /stats.
type Stats struct {
	TotalGames   int            `json:"totalGames"`
	AvgDuration  float64        `json:"avgDuration"`
	WinsPerUser  map[string]int `json:"winsPerUser"`
	GamesPerHour map[int]int    `json:"gamesPerHour"`
}
