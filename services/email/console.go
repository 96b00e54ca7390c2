package emailsvc

import (
	"log"
	"net/mail"
	"strings"
	"sync"

	"github.com/somaedu/soma-backend/core"
)

// SentMessages records every message sent in test mode.
var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail string
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService writes emails to stdout; used in DEV and TEST.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		disableOutput:    conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()

	if svc.disableOutput {
		return
	}

	tos := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		tos = append(tos, to.String())
	}
	log.Printf(
		"\n--- EMAIL ---\nFrom: %s\nTo: %s\nSubject: %s\n\n%s\n--- END EMAIL ---\n",
		(&mail.Address{Address: svc.defaultFromEmail}).String(),
		strings.Join(tos, ", "),
		svc.subjPrefix+msg.Subject,
		msg.Body,
	)
}

// ClearSentMessages resets the test-mode outbox.
func ClearSentMessages() {
	mu.Lock()
	defer mu.Unlock()
	SentMessages = SentMessages[:0]
}
