package proto

// CreateRoomResponse is returned by POST /api/rooms/create.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
}

// TTLResponse is returned by GET /api/rooms/ttl. TTL is whole seconds, 0 when the room is gone.
type TTLResponse struct {
	TTL int `json:"ttl"`
}

// MessageDTO is a chat message on the wire. Timestamp is Unix milliseconds.
type MessageDTO struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RoomID    string `json:"roomId"`
}

// MessagesResponse is returned by GET /api/messages.
type MessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

// SendMessageRequest is the body of POST /api/messages.
type SendMessageRequest struct {
	Sender string `json:"sender" binding:"required,max=64"`
	Text   string `json:"text" binding:"required"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}
