package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// Message is a rendered notification
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

type messageTemplate struct {
	subject *template.Template
	plain   *template.Template
	html    *htmltemplate.Template
}

func newMessageTemplate(name, subject, plain, html string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New(name + "_subject").Option("missingkey=error").Parse(subject)),
		plain:   template.Must(template.New(name + "_plain").Option("missingkey=error").Parse(plain)),
		html:    htmltemplate.Must(htmltemplate.New(name + "_html").Option("missingkey=error").Parse(html)),
	}
}

var templates = map[string]messageTemplate{
	TemplateEventApproved: newMessageTemplate(TemplateEventApproved,
		`Your event {{.EventName}} is live`,
		`Good news! Your event '{{.EventName}}' has been approved and is now open for registrations.`,
		`<p>Good news! Your event '<strong>{{.EventName}}</strong>' has been approved and is now open for registrations.</p>`,
	),
	TemplateEventRejected: newMessageTemplate(TemplateEventRejected,
		`Your event {{.EventName}} was not approved`,
		`Your event '{{.EventName}}' was reviewed and not approved. You can edit it and ask an admin to review it again.`,
		`<p>Your event '<strong>{{.EventName}}</strong>' was reviewed and not approved.</p><p>You can edit it and ask an admin to review it again.</p>`,
	),
	TemplateRegistrationConfirmed: newMessageTemplate(TemplateRegistrationConfirmed,
		`You're registered for {{.EventName}}`,
		`Hello {{.Name}}, you are registered for '{{.EventName}}' on {{.StartDate}} at {{.Location}}. Thank you for volunteering!`,
		`<p>Hello {{.Name}},</p><p>You are registered for '<strong>{{.EventName}}</strong>' on {{.StartDate}} at {{.Location}}.</p><p>Thank you for volunteering!</p>`,
	),
	TemplateEventReminder: newMessageTemplate(TemplateEventReminder,
		`Reminder: {{.EventName}} is in {{.Days}} day{{if ne .Days 1}}s{{end}}`,
		`Hello {{.Name}}, your event '{{.EventName}}' starts on {{.StartDate}} at {{.Location}}. Don't miss it!`,
		`<p>Hello {{.Name}},</p><p>Your event '<strong>{{.EventName}}</strong>' starts on {{.StartDate}} at {{.Location}}.</p><p>Don't miss it!</p>`,
	),
}

// Render executes the named template with data
func Render(name string, data map[string]any) (Message, error) {
	t, ok := templates[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var subject, plain, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.plain.Execute(&plain, data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", name, err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{Subject: subject.String(), Plain: plain.String(), HTML: html.String()}, nil
}
