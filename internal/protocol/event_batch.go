package protocol

// SUBSCRIBE (client -> server): follow one simulation's event log.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	SimulationID    string `json:"simulation_id"`
	// Resume position: events with cursor >= SinceCursor are replayed.
	SinceCursor uint64 `json:"since_cursor,omitempty"`
}

// WELCOME (server -> client): subscription accepted.
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SimulationID    string `json:"simulation_id"`
	NextCursor      uint64 `json:"next_cursor"`
}

type EventBatchItem struct {
	Cursor uint64   `json:"cursor"`
	Event  EventMsg `json:"event"`
}

// EVENTS (server -> client): a batch of newly appended events.
type EventBatchMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	SimulationID    string           `json:"simulation_id"`
	Events          []EventBatchItem `json:"events"`
	NextCursor      uint64           `json:"next_cursor"`
}

// ERROR (server -> client).
type StreamErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
