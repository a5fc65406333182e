package mail

// Sender defines the contract for delivering a rendered email.
type Sender interface {
	Send(to, subject, html string) error
}

// Message represents a single email captured by the Outbox test double.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Outbox records messages in memory for tests.
type Outbox struct {
	Messages []Message
}

// Send records the email in memory.
func (o *Outbox) Send(to, subject, html string) error {
	if o == nil {
		return nil
	}
	o.Messages = append(o.Messages, Message{To: to, Subject: subject, HTML: html})
	return nil
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(to, subject, html string) error

// Send implements Sender.
func (f SenderFunc) Send(to, subject, html string) error { return f(to, subject, html) }

// Nop implements Sender without performing any action.
type Nop struct{}

// Send implements Sender.
func (Nop) Send(string, string, string) error { return nil }
