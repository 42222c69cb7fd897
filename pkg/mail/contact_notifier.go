package mail

import (
	"fmt"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/event_bus"
)

const thankYouSubject = "Thank you for contacting Four Green Fields Farm"

// ContactNotifier mails the farm about every contact form submission and thanks the sender.
type ContactNotifier struct {
	renderer  *Renderer
	sender    Sender
	recipient string
}

func NewContactNotifier(renderer *Renderer, sender Sender, recipient string) *ContactNotifier {
	return &ContactNotifier{renderer: renderer, sender: sender, recipient: recipient}
}

func (n *ContactNotifier) Subscribe(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.TopicContactMessageReceived, n.handle)
}

func (n *ContactNotifier) handle(m event_bus.TypedMessage[event_bus.ContactMessageReceived]) error {
	data := TemplateData{
		Name:    m.Data.Name,
		Email:   m.Data.Email,
		Phone:   m.Data.Phone,
		Message: m.Data.Message,
	}

	notification, err := n.renderer.Render(ContactTemplate, data)
	if err != nil {
		return err
	}
	err = n.sender.Send(m.Context(), Message{
		To:      n.recipient,
		Subject: fmt.Sprintf("Contact Form: %s", data.Name),
		Html:    notification,
	})
	if err != nil {
		return err
	}

	thanks, err := n.renderer.Render(ContactThankYouTemplate, data)
	if err != nil {
		return err
	}
	return n.sender.Send(m.Context(), Message{To: data.Email, Subject: thankYouSubject, Html: thanks})
}
