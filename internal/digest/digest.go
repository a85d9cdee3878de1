// Package digest builds the daily summary report and mails it. It only ever
// reads the task store.
package digest

import (
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/ralphloop/ralph/internal/config"
	"github.com/ralphloop/ralph/internal/task"
)

// Report partitions the task list for one day using the same date-prefix
// convention as the scheduler policy.
type Report struct {
	Today     string
	DoneToday []task.Task
	Pending   []task.Task
	Failed    []task.Task
}

// Build assembles the report for the given "2006-01-02" date. Failed tasks
// fall back to created_at when they never reached completion.
func Build(tasks []task.Task, today string) Report {
	r := Report{Today: today}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusDone:
			if strings.HasPrefix(t.CompletedAt, today) {
				r.DoneToday = append(r.DoneToday, t)
			}
		case task.StatusPending:
			r.Pending = append(r.Pending, t)
		case task.StatusFailed:
			ts := t.CompletedAt
			if ts == "" {
				ts = t.CreatedAt
			}
			if strings.HasPrefix(ts, today) {
				r.Failed = append(r.Failed, t)
			}
		}
	}
	return r
}

// Subject returns the email subject line.
func (r Report) Subject() string {
	return fmt.Sprintf("Agent Daily Report — %d done, %d pending [%s]",
		len(r.DoneToday), len(r.Pending), r.Today)
}

// Body renders the plain-text report.
func (r Report) Body() string {
	var b strings.Builder

	fmt.Fprintf(&b, "✓ Completed (%d):\n", len(r.DoneToday))
	for _, t := range r.DoneToday {
		fmt.Fprintf(&b, "  #%d — %s\n", t.ID, excerpt(t.Prompt, 70))
	}
	if len(r.DoneToday) == 0 {
		b.WriteString("  (none)\n")
	}

	fmt.Fprintf(&b, "\n⏳ Pending (%d):\n", len(r.Pending))
	for _, t := range r.Pending {
		fmt.Fprintf(&b, "  #%d — %s\n", t.ID, excerpt(t.Prompt, 70))
	}
	if len(r.Pending) == 0 {
		b.WriteString("  (none)\n")
	}

	fmt.Fprintf(&b, "\n✗ Failed (%d):\n", len(r.Failed))
	for _, t := range r.Failed {
		line := fmt.Sprintf("  #%d — %s", t.ID, excerpt(t.Prompt, 60))
		if t.Summary != "" {
			line += " (" + t.Summary + ")"
		}
		b.WriteString(line + "\n")
	}
	if len(r.Failed) == 0 {
		b.WriteString("  (none)\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// Send delivers the report over SMTP with STARTTLS. Missing credentials are
// not an error; the digest is simply skipped.
func Send(cfg config.SMTP, r Report) (bool, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return false, nil
	}

	to := cfg.To
	if to == "" {
		to = cfg.Username
	}

	msg := mail.NewMsg()
	if err := msg.From(cfg.Username); err != nil {
		return false, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return false, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(r.Subject())
	msg.SetBodyString(mail.TypeTextPlain, r.Body())

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return false, fmt.Errorf("failed to build SMTP client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return false, fmt.Errorf("failed to send digest: %w", err)
	}
	return true, nil
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
