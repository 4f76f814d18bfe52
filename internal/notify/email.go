package notify

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/Dan9191/loanflow/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SMTPConfig is what the sender needs to reach the mail relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// deliverFunc matches (*email.Email).Send
type deliverFunc func(e *email.Email, addr string, a smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg     SMTPConfig
	logger  *logrus.Logger
	deliver deliverFunc
}

// NewSender creates a new email sender
func NewSender(cfg SMTPConfig, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:     cfg,
		logger:  logger,
		deliver: func(e *email.Email, addr string, a smtp.Auth) error { return e.Send(addr, a) },
	}
}

// SendSummary mails the daily portfolio summary to each recipient
func (s *Sender) SendSummary(to []string, summary models.PortfolioSummary) error {
	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = to
	e.Subject = fmt.Sprintf("Loan portfolio summary %s", summary.GeneratedAt.Format("2006-01-02"))
	e.Text = []byte(FormatSummary(summary))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.deliver(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send summary to %s: %v", strings.Join(to, ","), err)
		return fmt.Errorf("failed to send summary: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", strings.Join(to, ","), e.Subject)
	return nil
}

// FormatSummary renders the plain-text report body
func FormatSummary(summary models.PortfolioSummary) string {
	m := summary.Metrics
	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio summary generated at %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Users: %d customers, %d analysts, %d admins\n", m.Customers, m.Analysts, m.Admins)
	fmt.Fprintf(&b, "Applications: %d\n", m.Loans)

	statuses := make([]string, 0, len(m.ByStatus))
	for st := range m.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	for _, st := range statuses {
		fmt.Fprintf(&b, "  %-10s %d\n", st, m.ByStatus[models.LoanStatus(st)])
	}

	if summary.KeyRate > 0 {
		fmt.Fprintf(&b, "\nCentral bank key rate: %.2f%%\n", summary.KeyRate)
	} else {
		b.WriteString("\nCentral bank key rate: unavailable\n")
	}
	b.WriteString("\nLoanFlow")
	return b.String()
}
