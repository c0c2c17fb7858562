package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/order-pipeline/internal/domain/order"
)

// SMTPConfig configures the mail relay used for confirmations.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

var _ order.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier emails confirmations through an SMTP relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	tls  *tls.Config
	send func(ctx context.Context, to string, msg []byte) error
}

// NewSMTPNotifier returns an SMTPNotifier for cfg.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Addr == "" {
		return nil, errors.New("smtp address is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp sender is required")
	}
	n := &SMTPNotifier{cfg: cfg}
	n.send = n.dial
	return n, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, email, orderID string, o *order.PricedOrder) error {
	msg := Confirmation(o.CustomerName, orderID, o)
	if err := n.send(ctx, email, n.compose(email, msg)); err != nil {
		return errors.Wrapf(err, "send confirmation for %s", orderID)
	}
	return nil
}

func (n *SMTPNotifier) compose(to string, msg Message) []byte {
	var b bytes.Buffer
	b.WriteString("From: " + n.cfg.From + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.Write(bytes.ReplaceAll([]byte(msg.Body), []byte("\n"), []byte("\r\n")))
	b.WriteString("\r\n")
	return b.Bytes()
}

// tlsConfig returns the STARTTLS configuration verifying the relay as host.
func (n *SMTPNotifier) tlsConfig(host string) *tls.Config {
	if n.tls == nil {
		return &tls.Config{ServerName: host}
	}
	cfg := n.tls.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// dial delivers msg over a fresh connection bounded by ctx.
func (n *SMTPNotifier) dial(ctx context.Context, to string, msg []byte) error {
	host, _, err := net.SplitHostPort(n.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "parse smtp address")
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", n.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "handshake")
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(n.tlsConfig(host)); err != nil {
			return errors.Wrap(err, "starttls")
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, host)); err != nil {
			return errors.Wrap(err, "auth")
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return errors.Wrap(err, "mail from")
	}
	if err := c.Rcpt(to); err != nil {
		return errors.Wrap(err, "rcpt to")
	}
	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "write body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close body")
	}
	return c.Quit()
}
