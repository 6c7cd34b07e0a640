package events

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers raw event payloads on the returned channel until
	// the returned cancel function is called.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}
