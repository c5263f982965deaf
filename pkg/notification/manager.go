package notification

import (
	"fmt"
	"log/slog"
	"sync"
)

// Manager routes notices to a Notifier using the registered templates.
type Manager struct {
	mu        sync.RWMutex
	notifier  Notifier
	templates map[NoticeType]NoticeTemplate
}

func NewManager(notifier Notifier) *Manager {
	return &Manager{
		notifier:  notifier,
		templates: defaultTemplates(),
	}
}

// RegisterTemplate replaces the template used for a notice type.
func (m *Manager) RegisterTemplate(noticeType NoticeType, template NoticeTemplate) error {
	if noticeType == "" {
		return fmt.Errorf("invalid input: notice type cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[noticeType] = template
	return nil
}

// Send renders and delivers a notice of the given type.
func (m *Manager) Send(noticeType NoticeType, notification NotificationData) error {
	m.mu.RLock()
	template, exists := m.templates[noticeType]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("no template registered for notice type: %s", noticeType)
	}

	if err := m.notifier.Send(noticeType, notification, template); err != nil {
		slog.Error("Failed to send notice", "type", noticeType, "to", notification.To, "err", err)
		return fmt.Errorf("failed to send %s notice: %w", noticeType, err)
	}
	slog.Info("Notice sent", "type", noticeType, "to", notification.To)
	return nil
}

func defaultTemplates() map[NoticeType]NoticeTemplate {
	return map[NoticeType]NoticeTemplate{
		MagicLinkLoginNotice: {
			Subject: "Log in to WordPress.com",
			Text:    "Tap the link below to log in to your account.\n\n{{.Link}}\n\nIf you didn't request this email, you can safely ignore it.",
			Html:    `<p>Tap the link below to log in to your account.</p><p><a href="{{.Link}}">Log in</a></p><p>If you didn't request this email, you can safely ignore it.</p>`,
		},
		MagicLinkSignupNotice: {
			Subject: "Finish creating your WordPress.com account",
			Text:    "Tap the link below to finish creating your account.\n\n{{.Link}}\n\nIf you didn't request this email, you can safely ignore it.",
			Html:    `<p>Tap the link below to finish creating your account.</p><p><a href="{{.Link}}">Create account</a></p><p>If you didn't request this email, you can safely ignore it.</p>`,
		},
		OneTimeCodeNotice: {
			Subject: "Your WordPress.com verification code",
			Text:    "Your verification code is {{.Code}}. It expires shortly, so enter it soon.",
			Html:    `<p>Your verification code is <strong>{{.Code}}</strong>.</p><p>It expires shortly, so enter it soon.</p>`,
		},
	}
}
