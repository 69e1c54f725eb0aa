package report

import (
	"net/smtp"
	"strings"
	"testing"

	"github.com/rdjoudi/mybak/internal/logger"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func capture(dst *[]capturedMail) SendMailFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*dst = append(*dst, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
}

func TestSend_NoRecipientsIsNoop(t *testing.T) {
	var sent []capturedMail
	m := New("localhost:25", "mybak@example.com", nil, logger.NewConsole(), WithSendMail(capture(&sent)))
	if err := m.Send("host: backup OK", []byte("transcript")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(sent) != 0 {
		t.Errorf("no mail should go out without recipients")
	}
}

func TestSend_BuildsMessage(t *testing.T) {
	var sent []capturedMail
	rcpts := []string{"ops@example.com", "dba@example.com"}
	m := New("mail.example.com:25", "mybak@example.com", rcpts, logger.NewConsole(), WithSendMail(capture(&sent)))

	if err := m.Send("db1: backup WARNING", []byte("line one\nline two\n")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(sent))
	}

	got := sent[0]
	if got.addr != "mail.example.com:25" || got.from != "mybak@example.com" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if len(got.to) != 2 {
		t.Errorf("unexpected recipients: %v", got.to)
	}
	for _, want := range []string{
		"Subject: db1: backup WARNING\r\n",
		"To: ops@example.com, dba@example.com\r\n",
		"line one\nline two\n",
	} {
		if !strings.Contains(got.msg, want) {
			t.Errorf("message missing %q:\n%s", want, got.msg)
		}
	}
}
