package api

// MessageRequest is one inbound chat message from the collaborator.
type MessageRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text,omitempty"`
	ButtonID string `json:"button_id,omitempty"`
	MediaRef string `json:"media_ref,omitempty"`
}

// ButtonDTO is one quick-reply button attached to a response.
type ButtonDTO struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MessageResponse is the synchronous reply to one inbound message.
type MessageResponse struct {
	Reply   string      `json:"reply"`
	Buttons []ButtonDTO `json:"buttons,omitempty"`
	State   string      `json:"state"`
}

// SessionResponse describes a user's current conversation session.
type SessionResponse struct {
	UserID        string            `json:"user_id"`
	State         string            `json:"state"`
	Data          map[string]string `json:"data,omitempty"`
	LastUpdatedAt string            `json:"last_updated_at"`
}

// NotificationResponse is a notification task snapshot.
type NotificationResponse struct {
	ID          string `json:"id"`
	Target      string `json:"target"`
	Channel     string `json:"channel"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	MessageID   string `json:"message_id,omitempty"`
	LastError   string `json:"last_error,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// FailedNotificationsResponse lists permanently failed notifications.
type FailedNotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
}

// ProblemDetail is an RFC 7807 error body.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
