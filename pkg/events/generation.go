package events

import "time"

const (
	GenerationInitiated      = "generation.initiated"
	GenerationQuestionsAsked = "generation.questions_asked"
	GenerationProgress       = "generation.progress"
	GenerationCompleted      = "generation.completed"
	GenerationFailed         = "generation.failed"
	ChatDispatched           = "chat.dispatched"
)

// GenerationEvent carries the fields every generation event has in common.
// Extra goes into the payload as is.
type GenerationEvent struct {
	Type      string
	UserID    string
	SessionID string
	Kind      string
	Extra     map[string]interface{}
	At        time.Time
}

func (e GenerationEvent) EventType() string {
	return e.Type
}

func (e GenerationEvent) Payload() map[string]interface{} {
	p := make(map[string]interface{}, len(e.Extra)+4)
	for k, v := range e.Extra {
		p[k] = v
	}
	p["type"] = e.Type
	p["user_id"] = e.UserID
	p["session_id"] = e.SessionID
	p["kind"] = e.Kind
	return p
}

func (e GenerationEvent) Timestamp() time.Time {
	if e.At.IsZero() {
		return time.Now()
	}
	return e.At
}

// FromPayload rebuilds a GenerationEvent from a decoded payload.
func FromPayload(eventType string, payload map[string]interface{}, at time.Time) GenerationEvent {
	str := func(key string) string {
		s, _ := payload[key].(string)
		return s
	}
	extra := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch k {
		case "type", "user_id", "session_id", "kind":
		default:
			extra[k] = v
		}
	}
	if t := str("type"); t != "" {
		eventType = t
	}
	return GenerationEvent{
		Type:      eventType,
		UserID:    str("user_id"),
		SessionID: str("session_id"),
		Kind:      str("kind"),
		Extra:     extra,
		At:        at,
	}
}
