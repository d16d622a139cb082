package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"hoponhopoff/internal/config"
	"hoponhopoff/internal/logging"

	"github.com/segmentio/kafka-go"
)

// MAIL_DRIVERで実装を選ぶ。どれも auth.Notifier を満たす。
func New(cfg config.Config, logger *slog.Logger) (Notifier, error) {
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}

	switch cfg.MailDriver {
	case "smtp":
		return NewSMTPNotifier(cfg, r), nil
	case "kafka":
		return NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaMailTopic, cfg.MailFrom, r), nil
	case "log":
		return NewLogNotifier(cfg.MailFrom, r, logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.MailDriver)
	}
}

type Notifier interface {
	SendTemplatedEmail(ctx context.Context, to string, template string, data map[string]any) error
	Close() error
}

// =====================
// SMTP
// =====================

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	renderer *Renderer
	send     sendMailFunc
}

func NewSMTPNotifier(cfg config.Config, r *Renderer) *SMTPNotifier {
	var a smtp.Auth
	if cfg.SMTPUser != "" {
		a = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth:     a,
		from:     cfg.MailFrom,
		renderer: r,
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) SendTemplatedEmail(ctx context.Context, to string, template string, data map[string]any) error {
	msg, err := n.renderer.Render(n.from, to, template, data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.send(n.addr, n.auth, n.from, []string{to}, mimeMessage(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) Close() error { return nil }

func mimeMessage(m Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.From + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}

// =====================
// Kafka（メール送信ワーカーへジョブとして渡す）
// =====================

// トピックに流すJSON
type EmailJob struct {
	Email
	Template  string    `json:"template"`
	CreatedAt time.Time `json:"created_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaNotifier struct {
	writer   messageWriter
	from     string
	renderer *Renderer
}

func NewKafkaNotifier(brokers []string, topic string, from string, r *Renderer) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaNotifier{writer: w, from: from, renderer: r}
}

func (n *KafkaNotifier) SendTemplatedEmail(ctx context.Context, to string, template string, data map[string]any) error {
	msg, err := n.renderer.Render(n.from, to, template, data)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(EmailJob{Email: msg, Template: template, CreatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}
	// 同じ宛先は同じパーティション
	if err := n.writer.WriteMessages(ctx, kafka.Message{Key: []byte(to), Value: payload}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error { return n.writer.Close() }

// =====================
// Log（開発用。送らずにログに出す）
// =====================

type LogNotifier struct {
	from     string
	renderer *Renderer
	logger   *slog.Logger
}

func NewLogNotifier(from string, r *Renderer, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{from: from, renderer: r, logger: logger}
}

func (n *LogNotifier) SendTemplatedEmail(ctx context.Context, to string, template string, data map[string]any) error {
	msg, err := n.renderer.Render(n.from, to, template, data)
	if err != nil {
		return err
	}

	l := n.logger
	if l == nil {
		l = logging.FromContext(ctx)
	}
	l.InfoContext(ctx, "email (not sent)", "to", msg.To, "subject", msg.Subject, "template", template, "body", msg.HTML)
	return nil
}

func (n *LogNotifier) Close() error { return nil }
