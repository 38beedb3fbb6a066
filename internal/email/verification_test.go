package email

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type recordingSender struct {
	msg Message
	err error
}

func (s *recordingSender) Send(_ context.Context, msg Message) error {
	s.msg = msg
	return s.err
}

func TestVerificationMessage_EscapesHandle(t *testing.T) {
	msg, err := VerificationMessage("a@x.io", "<script>", "123456", time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatal("handle was not escaped")
	}
	if !strings.Contains(msg.HTML, "123456") || !strings.Contains(msg.Text, "123456") {
		t.Fatal("code missing from a part")
	}
	if !strings.Contains(msg.HTML, "03:04 UTC, 2 Jan 2026") {
		t.Fatalf("expiry missing from body: %s", msg.HTML)
	}
}

func TestSendCode_DeliversAndCounts(t *testing.T) {
	sender := &recordingSender{}
	m := NewVerificationMailer(sender)
	before := testutil.ToFloat64(metrics.EmailDispatchTotal.WithLabelValues("sent"))

	if err := m.SendCode(context.Background(), "a@x.io", "alice", "654321", time.Now()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sender.msg.To != "a@x.io" || sender.msg.Subject != verificationSubject {
		t.Fatalf("unexpected envelope: %+v", sender.msg)
	}
	if got := testutil.ToFloat64(metrics.EmailDispatchTotal.WithLabelValues("sent")); got != before+1 {
		t.Fatalf("sent counter = %v, want %v", got, before+1)
	}
}

func TestSendCode_PropagatesSenderError(t *testing.T) {
	boom := errors.New("provider down")
	m := NewVerificationMailer(&recordingSender{err: boom})
	before := testutil.ToFloat64(metrics.EmailDispatchTotal.WithLabelValues("failed"))

	if err := m.SendCode(context.Background(), "a@x.io", "alice", "654321", time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if got := testutil.ToFloat64(metrics.EmailDispatchTotal.WithLabelValues("failed")); got != before+1 {
		t.Fatalf("failed counter = %v, want %v", got, before+1)
	}
}

func TestNewSender_NoKeyLogsText(t *testing.T) {
	var buf bytes.Buffer
	s := NewSender(" ", "noreply@x.io", slog.New(slog.NewTextHandler(&buf, nil)))
	if _, ok := s.(*LogSender); !ok {
		t.Fatalf("sender = %T, want *LogSender", s)
	}

	if err := s.Send(context.Background(), Message{To: "a@x.io", Subject: "s", Text: "code 111111"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "code 111111") {
		t.Fatalf("text part not logged: %s", buf.String())
	}
}
