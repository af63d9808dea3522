// Package notification sends import summaries by mail.
package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Attachment is a file carried by a Message
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Message is a plain-text mail with optional attachments
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// SMTPMailer delivers messages through an SMTP relay. Every Send opens its
// own connection, bounded by the caller's context and the configured timeout.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	tls      mail.TLSPolicy
	timeout  time.Duration
	dialer   net.Dialer
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures an SMTPMailer
type Option func(*SMTPMailer)

// WithLogger sets the mailer's logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *SMTPMailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewSMTPMailer creates a mailer from cfg
func NewSMTPMailer(cfg *config.MailConfig, opts ...Option) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("mail sender is required")
	}
	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}
	m := &SMTPMailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		tls:      policy,
		timeout:  cfg.Timeout,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	if m.port == 0 {
		m.port = 587
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch name {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	}
	return mail.NoTLS, fmt.Errorf("unknown mail tls policy %q", name)
}

// Send builds the message and delivers it. The whole SMTP conversation
// must finish before ctx is done and within the configured timeout.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail has no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out, err := m.build(msg)
	if err != nil {
		return fmt.Errorf("build mail: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var release func() bool
	defer func() {
		if release != nil {
			release()
		}
	}()
	dial := func(dialCtx context.Context, network, addr string) (net.Conn, error) {
		conn, err := m.dialer.DialContext(dialCtx, network, addr)
		if err != nil {
			return nil, err
		}
		// a relay that stops answering must not outlive ctx
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		release = context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
		return conn, nil
	}

	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(m.tls),
		mail.WithTimeout(m.timeout),
		mail.WithDialContextFunc(dial),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	client, err := mail.NewClient(m.host, opts...)
	if err != nil {
		return fmt.Errorf("mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("send mail: %w", errors.Join(ctxErr, err))
		}
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("mail sent",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, err
	}
	if err := out.To(msg.To...); err != nil {
		return nil, err
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(m.now())
	out.SetMessageID()
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		if err := out.AttachReader(a.FileName, bytes.NewReader(a.Data),
			mail.WithFileContentType(mail.ContentType(ct))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", a.FileName, err)
		}
	}
	return out, nil
}
