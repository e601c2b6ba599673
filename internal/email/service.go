package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

type EmailJob struct {
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Kind    string    `json:"kind"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Options struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	redis       *redis.Client
	opts        Options
	send        sendFunc
	retryDelay  time.Duration
	pollBackoff time.Duration
}

func New(rdb *redis.Client, opts Options) *Service {
	return &Service{
		redis:       rdb,
		opts:        opts,
		send:        smtp.SendMail,
		retryDelay:  5 * time.Second,
		pollBackoff: 2 * time.Second,
	}
}

func (s *Service) Send(ctx context.Context, to, name, subject, body string) error {
	return s.enqueue(ctx, EmailJob{To: to, Name: name, Subject: subject, Body: body, Kind: "generic"})
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		return err
	}

	logger.Debug("email queued", "kind", job.Kind, "to", job.To)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.WithError(err).Warn("email queue unavailable", "retry_in", s.pollBackoff.String())
		select {
		case <-ctx.Done():
		case <-time.After(s.pollBackoff):
		}
		return
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.WithError(err).Warn("email delivery failed", "to", job.To, "attempt", job.Tries)

		if job.Tries < maxTries {
			time.Sleep(s.retryDelay)
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, data)
		} else {
			metrics.RecordEmail(job.Kind, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Kind, "sent")
	logger.Info("email sent", "kind", job.Kind, "to", job.To)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.opts.FromName, s.opts.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.opts.SMTPUser != "" && s.opts.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.opts.SMTPUser, s.opts.SMTPPass, s.opts.SMTPHost)
	}

	addr := s.opts.SMTPHost + ":" + s.opts.SMTPPort
	return s.send(addr, auth, s.opts.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

// Receipt describes a reconciled payment. Enrolled is false when the session
// filled up or closed before the webhook arrived.
type Receipt struct {
	To          string
	SessionType string
	When        time.Time
	AmountCents int64
	Currency    string
	Enrolled    bool
	ChatWindow  time.Duration
}

func (s *Service) SendPaymentReceipt(ctx context.Context, r Receipt) error {
	return s.enqueue(ctx, EmailJob{
		To:      r.To,
		Subject: "Payment received - " + r.SessionType,
		Body:    receiptBody(r),
		Kind:    "payment_receipt",
	})
}

func receiptBody(r Receipt) string {
	days := windowDays(r.ChatWindow)
	status := fmt.Sprintf("Your spot is reserved and chat with your trainer is unlocked for the next %d days.", days)
	if !r.Enrolled {
		status = fmt.Sprintf("The session was no longer open when your payment arrived, so you are not enrolled. "+
			"Chat with your trainer is unlocked for the next %d days so you can arrange another slot.", days)
	}

	return fmt.Sprintf(`Hi,

We received your payment of %s for the %s session on %s.
%s

- FitStudio Team`, FormatAmount(r.AmountCents, r.Currency), r.SessionType, r.When.Format("Jan 2, 2006"), status)
}

func windowDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return days
}

// FormatAmount renders minor units as a decimal amount with the currency code.
func FormatAmount(amountCents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amountCents/100, amountCents%100, strings.ToUpper(currency))
}
