package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	tls  bool
	rcpt string
	body string
}

// relayCert borrows the httptest certificate, valid for 127.0.0.1, and a
// pool that trusts it.
func relayCert(t *testing.T) (tls.Certificate, *x509.CertPool) {
	t.Helper()
	ts := httptest.NewTLSServer(http.NotFoundHandler())
	defer ts.Close()
	cert := ts.TLS.Certificates[0]
	roots := ts.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs
	return cert, roots
}

// fakeRelay accepts one SMTP session. When cert is non-nil it advertises
// STARTTLS and upgrades the connection on request.
func fakeRelay(t *testing.T, cert *tls.Certificate) (string, <-chan delivery) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan delivery, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		var d delivery
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 relay ready")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			verb, arg, _ := strings.Cut(line, " ")
			switch strings.ToUpper(verb) {
			case "EHLO", "HELO":
				if cert != nil && !d.tls {
					_ = tp.PrintfLine("250-relay")
					_ = tp.PrintfLine("250 STARTTLS")
				} else {
					_ = tp.PrintfLine("250 relay")
				}
			case "STARTTLS":
				_ = tp.PrintfLine("220 ready to start TLS")
				tc := tls.Server(conn, &tls.Config{Certificates: []tls.Certificate{*cert}})
				if err := tc.Handshake(); err != nil {
					return
				}
				tp = textproto.NewConn(tc)
				d.tls = true
			case "MAIL":
				_ = tp.PrintfLine("250 ok")
			case "RCPT":
				d.rcpt = arg
				_ = tp.PrintfLine("250 ok")
			case "DATA":
				_ = tp.PrintfLine("354 end with .")
				body, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				d.body = string(body)
				_ = tp.PrintfLine("250 queued")
			case "QUIT":
				_ = tp.PrintfLine("221 bye")
				out <- d
				return
			default:
				_ = tp.PrintfLine("502 not implemented")
			}
		}
	}()
	return ln.Addr().String(), out
}

func receive(t *testing.T, ch <-chan delivery) delivery {
	t.Helper()
	select {
	case d := <-ch:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("relay received nothing")
		return delivery{}
	}
}

func TestSMTPNotifier_DeliversOverSTARTTLS(t *testing.T) {
	cert, roots := relayCert(t)
	addr, got := fakeRelay(t, &cert)

	n, err := NewSMTPNotifier(SMTPConfig{Addr: addr, From: "orders@example.com"})
	require.NoError(t, err)
	n.tls = &tls.Config{RootCAs: roots}

	require.NoError(t, n.Notify(context.Background(), "jane@example.com", "o-1", pricedOrder()))

	d := receive(t, got)
	assert.True(t, d.tls, "session was not upgraded")
	assert.Contains(t, d.rcpt, "jane@example.com")
	assert.Contains(t, d.body, "Subject: Order Confirmation - o-1")
	assert.Contains(t, d.body, "Dear Jane Doe,")
}

func TestSMTPNotifier_DeliversWithoutSTARTTLS(t *testing.T) {
	addr, got := fakeRelay(t, nil)

	n, err := NewSMTPNotifier(SMTPConfig{Addr: addr, From: "orders@example.com"})
	require.NoError(t, err)

	require.NoError(t, n.Notify(context.Background(), "jane@example.com", "o-2", pricedOrder()))

	d := receive(t, got)
	assert.False(t, d.tls)
	assert.Contains(t, d.body, "Subject: Order Confirmation - o-2")
}

func TestSMTPNotifier_TLSConfigNamesRelay(t *testing.T) {
	n, err := NewSMTPNotifier(SMTPConfig{Addr: "mail.example.com:587", From: "orders@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com", n.tlsConfig("mail.example.com").ServerName)

	n.tls = &tls.Config{ServerName: "relay.internal"}
	assert.Equal(t, "relay.internal", n.tlsConfig("mail.example.com").ServerName)
}
