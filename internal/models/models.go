package models

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Message types pushed over the websocket
const (
	MessageDashboardUpdate = "dashboard_update"
)

// DetailResponse is the common body for fan-out style operations
type DetailResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details"`
	Blocked bool     `json:"blocked"`
}
