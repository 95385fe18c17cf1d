package realtime

import (
	"encoding/json"
	"time"

	"signcast/model"
)

// EventType names a realtime room event.
type EventType string

const (
	EventEntityUpdated     EventType = "entity-updated"
	EventItemAdded         EventType = "item-added"
	EventItemRemoved       EventType = "item-removed"
	EventItemsReordered    EventType = "item-reordered"
	EventScreensAssigned   EventType = "screens-assigned"
	EventScreensUnassigned EventType = "screens-unassigned"
	EventUserJoined        EventType = "user-joined"
	EventUserLeft          EventType = "user-left"

	// Control frames exchanged with the transport. Never delivered to
	// subscribers.
	EventJoinRoom  EventType = "join-room"
	EventLeaveRoom EventType = "leave-room"
)

// ChangeType categorizes what an entity-updated event touched. It is the
// conflict category when the event collides with a local in-flight edit.
const (
	ChangeMetadata   = "metadata"
	ChangeItems      = "items"
	ChangeAssignment = "assignment"
)

// Event is the wire envelope for every room message.
type Event struct {
	Type       EventType       `json:"type"`
	PlaylistID string          `json:"playlistId"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  int64           `json:"timestamp"`
}

// EntityUpdatedData is the payload of entity-updated.
type EntityUpdatedData struct {
	Entity         model.Playlist `json:"entity"`
	ChangedBy      string         `json:"changedBy"`
	ChangedByEmail string         `json:"changedByEmail"`
	ChangeType     string         `json:"changeType"`
}

// ItemAddedData is the payload of item-added. Actor fields are optional
// attribution for conflict records.
type ItemAddedData struct {
	Item       model.PlaylistItem `json:"item"`
	Position   int                `json:"position"`
	ActorID    string             `json:"actorId,omitempty"`
	ActorEmail string             `json:"actorEmail,omitempty"`
}

// ItemRemovedData is the payload of item-removed.
type ItemRemovedData struct {
	ItemID     string `json:"itemId"`
	ActorID    string `json:"actorId,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`
}

// ItemsReorderedData is the payload of item-reordered. Items carry the full
// authoritative sequence.
type ItemsReorderedData struct {
	Items      []model.PlaylistItem `json:"items"`
	ActorID    string               `json:"actorId,omitempty"`
	ActorEmail string               `json:"actorEmail,omitempty"`
}

// ScreensData is the payload of screens-assigned and screens-unassigned.
type ScreensData struct {
	ScreenIDs  []string `json:"screenIds"`
	ActorID    string   `json:"actorId"`
	ActorEmail string   `json:"actorEmail"`
}

// PresenceData is the payload of user-joined and user-left.
type PresenceData struct {
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	Timestamp int64  `json:"timestamp"`
}

// NewEvent builds an event with a marshaled payload and a current timestamp.
func NewEvent(t EventType, playlistID string, payload interface{}) (*Event, error) {
	ev := &Event{
		Type:       t,
		PlaylistID: playlistID,
		Timestamp:  time.Now().UnixMilli(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Data = data
	}
	return ev, nil
}

// Decode unmarshals the event payload into v.
func (ev *Event) Decode(v interface{}) error {
	return json.Unmarshal(ev.Data, v)
}

// IsControl reports whether the event is a transport control frame.
func (ev *Event) IsControl() bool {
	return ev.Type == EventJoinRoom || ev.Type == EventLeaveRoom
}
