package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Sender delivers a rendered notification.
type Sender interface {
	Deliver(ctx context.Context, msg Message) error
}

// SMTPSender delivers over plain SMTP. With an empty address it degrades to
// log-only, which is what local development runs.
type SMTPSender struct {
	Addr string
	From string
	Log  *zap.Logger
}

func (s *SMTPSender) Deliver(_ context.Context, msg Message) error {
	body := render(msg)
	if s.Addr == "" {
		s.Log.Info("mail (log only)",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject()),
			zap.String("body", body))
		return nil
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, msg.To, msg.Subject(), body)
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{msg.To}, []byte(payload)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// render produces a minimal plain-text body from the template variables.
func render(msg Message) string {
	var b strings.Builder
	if name := msg.Vars["name"]; name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	}
	b.WriteString(msg.Subject())
	if no := msg.Vars["order_no"]; no != "" {
		fmt.Fprintf(&b, " (order %s)", no)
	}
	b.WriteString(".\n")

	keys := make([]string, 0, len(msg.Vars))
	for k := range msg.Vars {
		if k == "name" || k == "order_no" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, msg.Vars[k])
	}
	return b.String()
}
