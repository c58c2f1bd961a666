// Package mail composes HTML report emails with inline chart images and
// delivers them over SMTP.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robby/linearpulse/internal/config"
)

// ErrNoRecipients is returned when a message has nobody to go to.
var ErrNoRecipients = errors.New("no recipients")

// Inline is an image embedded in the HTML body and referenced as cid:<CID>.
type Inline struct {
	CID         string
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one HTML email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Inline  []Inline
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP delivers through an SMTP relay. STARTTLS is used when the server offers it.
type SMTP struct {
	addr   string
	auth   smtp.Auth
	logger *zap.Logger
	send   sendFunc
	now    func() time.Time
}

// NewSMTP builds an SMTP mailer from config. Authentication is skipped when no
// user is configured.
func NewSMTP(cfg config.MailConfig, logger *zap.Logger) *SMTP {
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Host)
	}
	return &SMTP{
		addr:   cfg.Host + ":" + strconv.Itoa(cfg.Port),
		auth:   auth,
		logger: logger,
		send:   smtp.SendMail,
		now:    time.Now,
	}
}

// Send composes msg and hands it to the relay.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := Compose(msg, s.now())
	if err != nil {
		return err
	}

	if err := s.send(s.addr, s.auth, msg.From, msg.To, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Info("email sent",
		zap.String("subject", msg.Subject),
		zap.Strings("to", msg.To),
		zap.Int("inline_images", len(msg.Inline)),
	)
	return nil
}

// Compose renders msg as a MIME document. With inline images the body is
// multipart/related so clients resolve cid: references; otherwise plain HTML.
func Compose(msg Message, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", msg.From)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if len(msg.Inline) == 0 {
		header("Content-Type", `text/html; charset="UTF-8"`)
		header("Content-Transfer-Encoding", "base64")
		buf.WriteString("\r\n")
		if err := writeBase64(&buf, []byte(msg.HTML)); err != nil {
			return nil, fmt.Errorf("failed to write html body: %w", err)
		}
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	header("Content-Type", fmt.Sprintf(`multipart/related; boundary="%s"; type="text/html"`, mw.Boundary()))
	buf.WriteString("\r\n")

	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/html; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create html part: %w", err)
	}
	if err := writeBase64(body, []byte(msg.HTML)); err != nil {
		return nil, fmt.Errorf("failed to write html part: %w", err)
	}

	for _, img := range msg.Inline {
		ct := img.ContentType
		if ct == "" {
			ct = "image/png"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf(`%s; name="%s"`, ct, img.Filename)},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {"<" + img.CID + ">"},
			"Content-Disposition":       {fmt.Sprintf(`inline; filename="%s"`, img.Filename)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create part for %s: %w", img.CID, err)
		}
		if err := writeBase64(part, img.Data); err != nil {
			return nil, fmt.Errorf("failed to write part for %s: %w", img.CID, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64 encoded in 76 character lines.
func writeBase64(w io.Writer, data []byte) error {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		if _, err := io.WriteString(w, enc[:76]+"\r\n"); err != nil {
			return err
		}
		enc = enc[76:]
	}
	_, err := io.WriteString(w, enc+"\r\n")
	return err
}

// Outbox is an in-memory Mailer that records messages instead of sending them.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	// Err, when set, is returned by Send and nothing is recorded.
	Err error
}

// Send records msg.
func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if o.Err != nil {
		return o.Err
	}
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns the recorded messages in send order.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}
