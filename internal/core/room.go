package core

// Room groups clients subscribed to the same room channel.
type Room struct {
	Name string
	// per client event filter; nil means every kind
	clients map[*Client]map[EventKind]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]map[EventKind]struct{}),
	}
}

// AddClient subscribes a client for kinds, replacing any previous filter.
// Returns true if newly added.
func (r *Room) AddClient(c *Client, kinds []EventKind) bool {
	_, exists := r.clients[c]
	var filter map[EventKind]struct{}
	if len(kinds) > 0 {
		filter = make(map[EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			filter[k] = struct{}{}
		}
	}
	r.clients[c] = filter
	return !exists
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Broadcast sends an event to all clients in the room that want its kind
// and returns how many received it.
func (r *Room) Broadcast(event *Event) int {
	delivered := 0
	for client, filter := range r.clients {
		if filter != nil {
			if _, ok := filter[event.Kind]; !ok {
				continue
			}
		}
		select {
		case client.Events <- event:
			delivered++
		default:
			// Drop if slow consumer.
		}
	}
	return delivered
}

// Len returns the number of subscribed clients.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
