package comms

import (
	"reflect"
)

// Message is the envelope used in conversation with a client, in both
// directions. Type carries the event name.
type Message struct {
	Type     string      `json:"type"`
	Contents interface{} `json:"contents,omitempty"`
}

// Event is implemented by payloads whose wire name differs from their Go type
// name.
type Event interface {
	EventName() string
}

// ToMessage converts message contents into a Message
func ToMessage(contents interface{}) Message {
	var name string
	if event, ok := contents.(Event); ok {
		name = event.EventName()
	} else if contents != nil {
		name = reflect.TypeOf(contents).Name()
	}
	return Message{
		Type:     name,
		Contents: contents,
	}
}
