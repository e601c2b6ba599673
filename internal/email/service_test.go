package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"os"
	"testing"
	"time"

	"fitstudio/internal/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

func newTestService(rdb *redis.Client, send sendFunc) *Service {
	svc := New(rdb, Options{
		From:     "noreply@fitstudio.local",
		FromName: "FitStudio",
		SMTPHost: "smtp.test.com",
		SMTPPort: "587",
		SMTPUser: "test@example.com",
		SMTPPass: "password",
	})
	if send != nil {
		svc.send = send
	}
	svc.retryDelay = 0
	return svc
}

func TestSend(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, nil)

	err := svc.Send(context.Background(), "user@example.com", "User", "Hello", "Test body")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush("emails", `.*`).SetErr(assert.AnError)

	svc := newTestService(db, nil)

	err := svc.Send(context.Background(), "user@example.com", "User", "Hello", "Test body")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSendPaymentReceipt(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	err := newTestService(db, nil).SendPaymentReceipt(context.Background(), Receipt{
		To: "member@example.com", SessionType: "HIIT", When: time.Now(),
		AmountCents: 1250, Currency: "usd", Enrolled: true, ChatWindow: 30 * 24 * time.Hour,
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptBody(t *testing.T) {
	r := Receipt{
		SessionType: "HIIT",
		When:        time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		AmountCents: 1250,
		Currency:    "usd",
		Enrolled:    true,
		ChatWindow:  14 * 24 * time.Hour,
	}

	body := receiptBody(r)
	assert.Contains(t, body, "12.50 USD for the HIIT session on Mar 2, 2026")
	assert.Contains(t, body, "Your spot is reserved")
	assert.Contains(t, body, "next 14 days")
	assert.NotContains(t, body, "30 days")

	r.Enrolled = false
	body = receiptBody(r)
	assert.NotContains(t, body, "Your spot is reserved")
	assert.Contains(t, body, "you are not enrolled")
	assert.Contains(t, body, "next 14 days")
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen("emails").SetVal(5)

	svc := newTestService(db, nil)

	assert.Equal(t, int64(5), svc.QueueLength(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextDelivers(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job, _ := json.Marshal(EmailJob{To: "member@example.com", Subject: "Hi", Body: "Body", Kind: "generic"})
	mock.ExpectBRPop(2*time.Second, "emails").SetVal([]string{"emails", string(job)})

	var gotTo []string
	var gotMsg string
	svc := newTestService(db, func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotTo = to
		gotMsg = string(msg)
		assert.Equal(t, "smtp.test.com:587", addr)
		return nil
	})

	svc.processNext(context.Background())

	assert.Equal(t, []string{"member@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hi\r\n")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextRequeuesOnFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job, _ := json.Marshal(EmailJob{To: "member@example.com", Subject: "Hi", Tries: 0})
	mock.ExpectBRPop(2*time.Second, "emails").SetVal([]string{"emails", string(job)})
	mock.Regexp().ExpectLPush("emails", `.*`).SetVal(1)

	svc := newTestService(db, func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("smtp down")
	})

	svc.processNext(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextMovesToFailedQueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	job, _ := json.Marshal(EmailJob{To: "member@example.com", Subject: "Hi", Tries: 2})
	mock.ExpectBRPop(2*time.Second, "emails").SetVal([]string{"emails", string(job)})
	mock.Regexp().ExpectLPush("emails:failed", `.*`).SetVal(1)

	svc := newTestService(db, func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("smtp down")
	})

	svc.processNext(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextBacksOffWhenRedisFails(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectBRPop(2*time.Second, "emails").SetErr(errors.New("connection refused"))

	svc := newTestService(db, nil)
	svc.pollBackoff = 50 * time.Millisecond
	start := time.Now()
	svc.processNext(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextEmptyQueueDoesNotBackOff(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectBRPop(2*time.Second, "emails").SetErr(redis.Nil)

	svc := newTestService(db, nil)
	svc.pollBackoff = time.Hour
	start := time.Now()
	svc.processNext(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "12.50 USD", FormatAmount(1250, "usd"))
	require.Equal(t, "0.05 EUR", FormatAmount(5, "eur"))
}
