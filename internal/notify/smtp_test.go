package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

// fakeSMTP is a minimal plaintext SMTP server that records one message.
type fakeSMTP struct {
	ln    net.Listener
	from  string
	rcpts []string
	data  string
	done  chan struct{}
}

func startFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeSMTP{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() { ln.Close() })
	go f.serve()
	return f
}

func (f *fakeSMTP) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

func (f *fakeSMTP) serve() {
	defer close(f.done)
	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	r := bufio.NewReader(conn)
	write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

	write("220 fake ESMTP")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			write("250-fake")
			write("250 HELP")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			f.from = strings.Trim(line[len("MAIL FROM:"):], "<> ")
			write("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			f.rcpts = append(f.rcpts, strings.Trim(line[len("RCPT TO:"):], "<> "))
			write("250 OK")
		case cmd == "DATA":
			write("354 go ahead")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			f.data = b.String()
			write("250 queued")
		case cmd == "QUIT":
			write("221 bye")
			return
		default:
			write("250 OK")
		}
	}
}

func TestSMTP_DisabledWithoutConfig(t *testing.T) {
	cases := []*SMTP{
		nil,
		{},
		{Host: "smtp.example.com", User: "u", Password: "p"},
		{Host: "smtp.example.com", User: "u", To: []string{"ops@example.com"}},
	}
	for i, m := range cases {
		if err := m.Send(context.Background(), "s", "b"); !errors.Is(err, ErrDisabled) {
			t.Fatalf("case %d: want ErrDisabled, got %v", i, err)
		}
	}
}

func TestSMTP_DeliversMessage(t *testing.T) {
	srv := startFakeSMTP(t)
	m := &SMTP{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		User:     "alerts@example.com",
		Password: "secret",
		To:       []string{"ops@example.com", "oncall@example.com"},
		Timeout:  2 * time.Second,
		Now:      func() time.Time { return time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC) },
	}

	if err := m.Send(context.Background(), "[CloudPulse] ALERT", "Status: 500\nURL: https://example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	<-srv.done

	if srv.from != "alerts@example.com" {
		t.Fatalf("from defaults to user, got %q", srv.from)
	}
	if strings.Join(srv.rcpts, ",") != "ops@example.com,oncall@example.com" {
		t.Fatalf("unexpected recipients: %v", srv.rcpts)
	}
	if !strings.Contains(srv.data, "Subject: [CloudPulse] ALERT\r\n") {
		t.Fatalf("missing subject header:\n%s", srv.data)
	}
	if !strings.Contains(srv.data, "Status: 500\r\nURL: https://example.com") {
		t.Fatalf("body not CRLF-normalized:\n%s", srv.data)
	}
}

func TestSMTP_UnreachableServerIsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := &SMTP{Host: "127.0.0.1", Port: port, User: "u", Password: "p", To: []string{"x@example.com"}, Timeout: time.Second}
	err = m.Send(context.Background(), "s", "b")
	if err == nil || errors.Is(err, ErrDisabled) {
		t.Fatalf("want dial error, got %v", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(port)) {
		t.Fatalf("error should name the address: %v", err)
	}
}

func TestParseRecipients(t *testing.T) {
	got := ParseRecipients(" a@x.io, ,b@x.io,")
	if len(got) != 2 || got[0] != "a@x.io" || got[1] != "b@x.io" {
		t.Fatalf("unexpected: %v", got)
	}
	if ParseRecipients("") != nil {
		t.Fatalf("empty input should yield nil")
	}
}

func TestSMTP_CancelAbortsStalledServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// accept and never greet
		_, _ = conn.Read(make([]byte, 1))
	}()

	m := &SMTP{
		Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port,
		User: "u", Password: "p", To: []string{"ops@example.test"},
		Timeout: 30 * time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	if err := m.Send(ctx, "s", "b"); err == nil {
		t.Fatal("expected error from cancelled send")
	}
	if el := time.Since(start); el > 2*time.Second {
		t.Fatalf("cancelled send took %v", el)
	}
}
