package model

import "context"

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier sends the account emails of the authentication flows.
type Notifier interface {
	SendVerificationCode(ctx context.Context, user User, code string) error
	SendPasswordReset(ctx context.Context, user User, token string) error
	SendWelcome(ctx context.Context, user User) error
}
