package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
)

type SMTPConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// Timeout bounds the whole smtp exchange, dialing included. Defaults to 10 seconds.
	Timeout time.Duration `json:"-"`
}

// SMTPEmail sends plain text mail through an authenticated relay.
type SMTPEmail struct {
	config SMTPConfig
}

func NewSMTPEmail(config SMTPConfig) SMTPEmail {
	if config.Port == 0 {
		config.Port = 587
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return SMTPEmail{config: config}
}

func (s SMTPEmail) message(to, subject, body string) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Tarjomic Watch <%s>", s.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = subject
	mail.Text = []byte(body)
	return mail
}

// SendEmail delivers one message. The exchange gives up once the configured timeout
// passes or `ctx` is done, and the connection is closed on every path.
func (s SMTPEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	raw, err := s.message(to, subject, body).Bytes()
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	err = s.send(ctx, to, raw)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s SMTPEmail) send(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(s.config.Server, strconv.Itoa(s.config.Port))
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	err = conn.SetDeadline(deadline)
	if err != nil {
		return err
	}
	// unblocks reads and writes when ctx is cancelled before the deadline
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.config.Server)
	if err != nil {
		return err
	}
	defer client.Close()

	err = client.Hello("localhost")
	if err != nil {
		return err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		err = client.StartTLS(&tls.Config{ServerName: s.config.Server})
		if err != nil {
			return err
		}
	}
	// relays without AUTH get the message unauthenticated
	if ok, _ := client.Extension("AUTH"); ok {
		err = client.Auth(smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server))
		if err != nil {
			return err
		}
	}

	err = client.Mail(s.config.EmailAddress)
	if err != nil {
		return err
	}
	err = client.Rcpt(to)
	if err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	if err != nil {
		return err
	}
	err = w.Close()
	if err != nil {
		return err
	}
	return client.Quit()
}
