// Package mail renders account emails and delivers them over SMTP, a
// Redis-backed queue or the log.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Kind names an email template.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "reset"
	KindWelcome       Kind = "welcome"
)

var subjects = map[Kind]string{
	KindVerification:  "Email Verification - NTCG Kenya",
	KindPasswordReset: "Password Reset Request - NTCG Kenya",
	KindWelcome:       "Welcome to NTCG Kenya",
}

const (
	supportEmail = "info@ntcogk.org"
	supportPhone = "+254 759 120 222"
)

// Data is the template input.
type Data struct {
	Name         string
	Code         string
	ResetURL     string
	FrontendURL  string
	ExpiresIn    string
	SupportEmail string
	SupportPhone string
	Year         int
}

type pair struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Templates holds the parsed HTML and plain-text bodies of every Kind.
type Templates struct {
	byKind map[Kind]pair
}

// ParseTemplates parses the embedded templates.
func ParseTemplates() (*Templates, error) {
	t := &Templates{byKind: make(map[Kind]pair, len(subjects))}

	for kind := range subjects {
		html, err := htmltemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s html template: %w", kind, err)
		}
		text, err := texttemplate.ParseFS(templateFS, "templates/"+string(kind)+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse %s text template: %w", kind, err)
		}
		t.byKind[kind] = pair{html: html, text: text}
	}

	return t, nil
}

// Render returns the subject, HTML and text bodies of kind.
func (t *Templates) Render(kind Kind, data Data) (subject, html, text string, err error) {
	p, ok := t.byKind[kind]
	if !ok {
		return "", "", "", fmt.Errorf("unknown mail template %q", kind)
	}
	if data.SupportEmail == "" {
		data.SupportEmail = supportEmail
	}
	if data.SupportPhone == "" {
		data.SupportPhone = supportPhone
	}

	var hb, tb bytes.Buffer
	if err := p.html.ExecuteTemplate(&hb, "layout", data); err != nil {
		return "", "", "", fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := p.text.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render %s text: %w", kind, err)
	}

	return subjects[kind], hb.String(), tb.String(), nil
}

// humanize renders whole-unit durations the way the emails word them:
// "10 minutes", "1 hour".
func humanize(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return strconv.FormatInt(n, 10) + " " + name + "s"
	}

	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return unit(int64(d/(24*time.Hour)), "day")
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}
