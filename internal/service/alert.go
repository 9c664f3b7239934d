package service

import (
	"crypto/tls"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/sirupsen/logrus"

	"banking-ledger/internal/config"
)

// Alerter оповещает операторов о событиях, требующих ручного вмешательства
type Alerter interface {
	Alert(event string, fields logrus.Fields) error
}

// EmailAlerter отправляет оповещения по SMTP
type EmailAlerter struct {
	dialer  *mail.Dialer
	logger  *logrus.Logger
	enabled bool
	from    string
	to      []string
}

func NewEmailAlerter(cfg config.AlertConfig, logger *logrus.Logger) *EmailAlerter {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUser
	}
	return &EmailAlerter{
		dialer:  d,
		logger:  logger,
		enabled: cfg.Enabled && len(cfg.To) > 0,
		from:    from,
		to:      cfg.To,
	}
}

func (a *EmailAlerter) Alert(event string, fields logrus.Fields) error {
	if !a.enabled {
		a.logger.WithField("event", event).Debug("Оповещения отключены")
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", a.from)
	m.SetHeader("To", a.to...)
	m.SetHeader("Subject", fmt.Sprintf("[banking-ledger] %s", event))
	m.SetBody("text/plain", alertBody(event, fields))

	if err := a.dialer.DialAndSend(m); err != nil {
		a.logger.WithError(err).WithField("event", event).Error("Ошибка отправки оповещения")
		return fmt.Errorf("не удалось отправить оповещение: %w", err)
	}

	a.logger.WithField("event", event).Info("Оповещение отправлено")
	return nil
}

func alertBody(event string, fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "Event: %s\n", event)
	fmt.Fprintf(&b, "Time: %s\n\n", time.Now().UTC().Format(time.RFC3339))
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, fields[k])
	}
	return b.String()
}
