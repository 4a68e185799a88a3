package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated content
		Template     *texttmpl.Template
		TemplateData interface{}
		TextContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render executes the message template (if any) into TextContent.
func (msg *EmailMessage) Render() error {
	if msg.Template == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := msg.Template.Execute(&buf, msg.TemplateData); err != nil {
		return errors.Wrapf(err, "executing template %q", msg.Template.Name())
	}
	msg.TextContent = buf.String()
	return nil
}

func (msg *EmailMessage) HasRecipients() bool {
	return (len(msg.To) + len(msg.Cc) + len(msg.Bcc)) > 0
}

func (msg *EmailMessage) HasContent() bool {
	return msg.BodyStr != "" || msg.TextContent != "" || msg.Template != nil
}
