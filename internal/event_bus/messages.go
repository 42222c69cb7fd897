package event_bus

const TopicContactMessageReceived Topic = "contact.message.received"

// ContactMessageReceived is published once a contact form submission passed validation.
type ContactMessageReceived struct {
	Name    string
	Email   string
	Phone   string
	Message string
}
