package interfaces

// EventPublisher fans ledger and gateway events out to interested
// consumers. Publishing is best-effort from the ledger's point of view;
// a failed publish never rolls back the mutation it describes.
type EventPublisher interface {
	Publish(topic string, event any) error
}
