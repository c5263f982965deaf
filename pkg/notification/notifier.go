package notification

// NoticeType identifies a kind of message the authentication flow sends.
type NoticeType string

const (
	// MagicLinkLoginNotice carries the passwordless login link.
	MagicLinkLoginNotice NoticeType = "magic_link_login"
	// MagicLinkSignupNotice carries the account-creation link.
	MagicLinkSignupNotice NoticeType = "magic_link_signup"
	// OneTimeCodeNotice carries a second-factor passcode.
	OneTimeCodeNotice NoticeType = "one_time_code"
)

// NoticeTemplate is the renderable content registered for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// NotificationData carries one outgoing message.
type NotificationData struct {
	To   string            // Recipient address
	Data map[string]string // Template values (link URL, passcode, ...)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
