package realtime

// Event kinds carried in the websocket envelope. The set is closed; clients
// switch on these values verbatim.
const (
	EventNewComment       = "NEW_COMMENT"
	EventNewThread        = "NEW_THREAD"
	EventNewLike          = "NEW_LIKE"
	EventNewUser          = "NEW_USER"
	EventNewNotification  = "NEW_NOTIFICATION"
	EventModerationReview = "MODERATION_REVIEW"
)

// Envelope is the wire shape of every realtime message:
// {"event": "<KIND>", "data": {...}}. For the notifications channel the data
// object additionally carries the target user_id so listeners can route the
// message to a single user instead of broadcasting it.
type Envelope struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// NewEnvelope builds an envelope with a non-nil data map.
func NewEnvelope(event string, data map[string]any) Envelope {
	if data == nil {
		data = make(map[string]any)
	}
	return Envelope{Event: event, Data: data}
}
