package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/timehacker/api/internal/constants"
	"github.com/timehacker/api/pkg/circuit"
	ctxutil "github.com/timehacker/api/pkg/context"
	"github.com/timehacker/api/pkg/logger"
	"github.com/timehacker/api/pkg/notify"
)

// ResetNotifier delivers a raw reset token to the account owner out of
// band. Implementations must never log the token.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, email, rawToken, siteURL string) error
}

// MessagePublisher is satisfied by *notify.Publisher
type MessagePublisher interface {
	Publish(ctx context.Context, msg notify.Message) error
}

// LinkBuilder renders the reset link from a sprig enabled text template
type LinkBuilder struct {
	tmpl *template.Template
}

type resetLinkData struct {
	SiteURL string
	Token   string
	Email   string
}

func NewLinkBuilder(text string) (*LinkBuilder, error) {
	tmpl, err := template.New("reset_link").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse reset link template: %w", err)
	}
	return &LinkBuilder{tmpl: tmpl}, nil
}

func (b *LinkBuilder) Build(siteURL, token, email string) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, resetLinkData{SiteURL: siteURL, Token: token, Email: email}); err != nil {
		return "", fmt.Errorf("render reset link: %w", err)
	}
	return buf.String(), nil
}

// QueueNotifier publishes reset links for the mail worker. The breaker
// keeps a broker outage from stalling forgot-password requests.
type QueueNotifier struct {
	publisher MessagePublisher
	links     *LinkBuilder
	breaker   *circuit.Breaker
}

func NewQueueNotifier(publisher MessagePublisher, links *LinkBuilder, breaker *circuit.Breaker) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, links: links, breaker: breaker}
}

func (n *QueueNotifier) NotifyPasswordReset(ctx context.Context, email, rawToken, siteURL string) error {
	ctx = ctxutil.WithFunction(ctx, "service", "QueueNotifier.NotifyPasswordReset")

	link, err := n.links.Build(siteURL, rawToken, email)
	if err != nil {
		return err
	}

	msg := notify.Message{
		To:      email,
		Link:    link,
		Purpose: constants.PurposePasswordReset,
	}

	err = n.breaker.Execute(ctx, func(ctx context.Context) error {
		return n.publisher.Publish(ctx, msg)
	})
	if err != nil {
		logger.WarnWithContext(ctx, "Reset notification not published").
			String("breaker_state", n.breaker.State().String()).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Reset notification queued").Log()
	return nil
}

// LogNotifier is used when no broker is configured. It records that a
// reset was requested and drops the token.
type LogNotifier struct{}

func (LogNotifier) NotifyPasswordReset(ctx context.Context, email, rawToken, siteURL string) error {
	ctx = ctxutil.WithFunction(ctx, "service", "LogNotifier.NotifyPasswordReset")

	logger.InfoWithContext(ctx, "Password reset requested, no notifier configured").
		String("site_url", siteURL).
		Int("token_length", len(rawToken)).
		Log()
	return nil
}
