// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("").Funcs(template.FuncMap{
		"lines": lines,
	}).ParseFS(templateFS, "templates/*.html"),
)

// Identity is the company information printed in outgoing mail.
type Identity struct {
	Company     string // "ITProBit"
	FromAddress string // "noreply@itprobit.com"
	AdminTo     string // operator inbox for notifications
	SiteURL     string
	Phone       string
}

// Enquiry is the visitor data carried into contact emails.
type Enquiry struct {
	Name    string
	Email   string
	Phone   string
	Service string
	Message string
}

// Composer renders contact-form emails for an Identity.
type Composer struct {
	id  Identity
	now func() time.Time
}

// NewComposer creates a Composer.
func NewComposer(id Identity) *Composer {
	return &Composer{id: id, now: time.Now}
}

// ContactNotification builds the operator notification. Replies go to the
// visitor.
func (c *Composer) ContactNotification(e Enquiry) (Message, error) {
	html, err := c.render("contact_notification.html", e)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    fmt.Sprintf("%s Contact Form <%s>", c.id.Company, c.id.FromAddress),
		To:      []string{c.id.AdminTo},
		ReplyTo: e.Email,
		Subject: "New Contact Form Submission from " + e.Name,
		HTML:    html,
	}, nil
}

// ContactAcknowledgment builds the thank-you email sent to the visitor.
func (c *Composer) ContactAcknowledgment(e Enquiry) (Message, error) {
	html, err := c.render("contact_acknowledgment.html", e)
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    fmt.Sprintf("%s <%s>", c.id.Company, c.id.FromAddress),
		To:      []string{e.Email},
		Subject: "Thank you for contacting " + c.id.Company,
		HTML:    html,
	}, nil
}

func (c *Composer) render(name string, e Enquiry) (string, error) {
	var buf bytes.Buffer
	data := map[string]any{
		"Enquiry":  e,
		"Identity": c.id,
		"Now":      c.now(),
	}
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// lines splits text on newlines so templates can join them with <br>
// without marking user input as safe HTML.
func lines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
