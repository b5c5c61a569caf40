package providers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"shipnotify/internal/domain"
	"shipnotify/internal/store"
)

type smtpAdapter struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

func newSMTP(cfg store.TenantProviderConfig) (*smtpAdapter, error) {
	host := cfg.Settings["host"]
	from := cfg.Settings["from_address"]
	if host == "" || from == "" {
		return nil, errors.New("smtp config requires host and from_address")
	}
	port := 587
	if raw := cfg.Settings["port"]; raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("smtp: invalid port %q", raw)
		}
		port = p
	}
	return &smtpAdapter{
		host:     host,
		port:     port,
		username: cfg.Settings["username"],
		password: cfg.Credentials["password"],
		from:     from,
		fromName: cfg.Settings["from_name"],
	}, nil
}

func (a *smtpAdapter) ID() string              { return ProviderSMTP }
func (a *smtpAdapter) Channel() domain.Channel { return domain.ChannelEmail }

func (a *smtpAdapter) Send(ctx context.Context, msg Message) (SendResult, error) {
	c, err := a.connect(ctx)
	if err != nil {
		return SendResult{}, err
	}
	defer c.Close()

	if err := c.Mail(a.from); err != nil {
		return SendResult{}, a.classify(err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return SendResult{}, a.classify(err)
	}
	wc, err := c.Data()
	if err != nil {
		return SendResult{}, a.classify(err)
	}
	if _, err := wc.Write(a.buildMIME(msg)); err != nil {
		wc.Close()
		return SendResult{}, a.classify(err)
	}
	if err := wc.Close(); err != nil {
		return SendResult{}, a.classify(err)
	}
	_ = c.Quit()
	return SendResult{}, nil
}

func (a *smtpAdapter) TestConnection(ctx context.Context) error {
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	_ = c.Quit()
	return nil
}

// connect dials the relay, negotiates TLS (implicit on 465, STARTTLS
// elsewhere when offered) and authenticates.
func (a *smtpAdapter) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(a.host, strconv.Itoa(a.port))
	dialer := &net.Dialer{}

	var c *smtp.Client
	if a.port == 465 {
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: a.host})
		if err != nil {
			return nil, &Error{Provider: ProviderSMTP, Kind: KindNetwork, Message: err.Error(), Err: err}
		}
		c, err = smtp.NewClient(conn, a.host)
		if err != nil {
			conn.Close()
			return nil, &Error{Provider: ProviderSMTP, Kind: KindNetwork, Message: err.Error(), Err: err}
		}
	} else {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, &Error{Provider: ProviderSMTP, Kind: KindNetwork, Message: err.Error(), Err: err}
		}
		c, err = smtp.NewClient(conn, a.host)
		if err != nil {
			conn.Close()
			return nil, &Error{Provider: ProviderSMTP, Kind: KindNetwork, Message: err.Error(), Err: err}
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: a.host}); err != nil {
				c.Close()
				return nil, &Error{Provider: ProviderSMTP, Kind: KindNetwork, Message: err.Error(), Err: err}
			}
		}
	}

	if a.username != "" {
		auth := smtp.PlainAuth("", a.username, a.password, a.host)
		if err := c.Auth(auth); err != nil {
			c.Close()
			return nil, &Error{Provider: ProviderSMTP, Kind: KindAuth, Message: err.Error(), Err: err}
		}
	}
	return c, nil
}

func (a *smtpAdapter) buildMIME(msg Message) []byte {
	var b strings.Builder
	from := a.from
	if a.fromName != "" {
		from = fmt.Sprintf("%s <%s>", a.fromName, a.from)
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// classify maps SMTP protocol errors. 535 and its 5.7.x cousins are
// credential problems; everything else on an open connection is treated as
// a relay rejection.
func (a *smtpAdapter) classify(err error) *Error {
	text := err.Error()
	if strings.Contains(text, "535") || strings.Contains(text, "5.7.8") || strings.Contains(text, "5.7.0") {
		return &Error{Provider: ProviderSMTP, Kind: KindAuth, Message: text, Err: err}
	}
	return &Error{Provider: ProviderSMTP, Kind: KindRejected, Message: text, Err: err}
}
