package websocket

// Frame types pushed to dashboard clients
const (
	// TypeAuthenticated confirms the session; the dashboard may render.
	TypeAuthenticated = "authenticated"

	// TypeRedirect tells the dashboard to leave for Location.
	TypeRedirect = "redirect"
)

// Message is one JSON frame sent to a client
type Message struct {
	Type     string `json:"type"`
	Location string `json:"location,omitempty"`
	OwnerID  string `json:"owner_id,omitempty"`
}
