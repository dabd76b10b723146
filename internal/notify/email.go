package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"sort"
	"strings"
	"sync"
)

// EmailSender — внешний почтовый канал. Письмо best-effort: ошибка
// логируется и никогда не блокирует переход статуса.
type EmailSender interface {
	Send(to, templateKey string, data map[string]string) error
}

// Email — активный отправитель процесса, по умолчанию пишем в лог
var Email EmailSender = LogSender{}

// SendEmail — обёртка с проглатыванием ошибки
func SendEmail(to, templateKey string, data map[string]string) {
	if to == "" {
		return
	}
	if err := Email.Send(to, templateKey, data); err != nil {
		log.Printf("notify: email %q to %s failed: %v", templateKey, to, err)
	}
}

// LogSender — заглушка без SMTP (локальная разработка)
type LogSender struct{}

func (LogSender) Send(to, templateKey string, data map[string]string) error {
	log.Printf("email [%s] to %s: %v", templateKey, to, data)
	return nil
}

// SMTPSender шлёт простое plain-text письмо через net/smtp
type SMTPSender struct {
	Addr string // host:port
	From string
}

func (s SMTPSender) Send(to, templateKey string, data map[string]string) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n", s.From, to, templateKey)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, data[k])
	}

	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(b.String()))
}

// MemorySender копит письма в памяти (для тестов)
type MemorySender struct {
	mu   sync.Mutex
	Sent []MemoryEmail
}

type MemoryEmail struct {
	To       string
	Template string
	Data     map[string]string
}

func (m *MemorySender) Send(to, templateKey string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, MemoryEmail{To: to, Template: templateKey, Data: data})
	return nil
}

func (m *MemorySender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
