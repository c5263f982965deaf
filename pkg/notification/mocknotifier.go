package notification

import "sync"

// SentNotice records one delivered notice for inspection in tests.
type SentNotice struct {
	Type NoticeType
	Data NotificationData
}

// MockNotifier records notices instead of delivering them.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotice
	Err  error // Returned from Send when set
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentNotice{Type: noticeType, Data: notification})
	return nil
}

// LastTo returns the recipient of the most recent notice, or "".
func (m *MockNotifier) LastTo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1].Data.To
}
