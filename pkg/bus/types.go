package bus

// Trigger asks the runner to execute one workflow run.
type Trigger struct {
	ID       string            `json:"id"`
	Mode     string            `json:"mode"`
	Command  string            `json:"command,omitempty"`
	Channel  string            `json:"channel"`
	ChatID   string            `json:"chat_id,omitempty"`
	SenderID string            `json:"sender_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Reply is what an operator channel sends back for a trigger it raised.
type Reply struct {
	Channel  string            `json:"channel"`
	ChatID   string            `json:"chat_id,omitempty"`
	RunID    string            `json:"run_id,omitempty"`
	Content  string            `json:"content"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
