package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SendUsesRegisteredTemplate(t *testing.T) {
	mock := &MockNotifier{}
	manager := NewManager(mock)

	err := manager.Send(OneTimeCodeNotice, NotificationData{
		To:   "alice@example.com",
		Data: map[string]string{"Code": "1234567"},
	})
	require.NoError(t, err)
	require.Len(t, mock.Sent, 1)
	assert.Equal(t, OneTimeCodeNotice, mock.Sent[0].Type)
	assert.Equal(t, "alice@example.com", mock.LastTo())
}

func TestManager_SendUnknownNoticeType(t *testing.T) {
	manager := NewManager(&MockNotifier{})

	err := manager.Send(NoticeType("unknown"), NotificationData{To: "alice@example.com"})
	assert.Error(t, err)
}

func TestManager_SendWrapsNotifierError(t *testing.T) {
	mock := &MockNotifier{Err: errors.New("smtp down")}
	manager := NewManager(mock)

	err := manager.Send(MagicLinkLoginNotice, NotificationData{To: "alice@example.com"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "smtp down")
}

func TestManager_RegisterTemplate(t *testing.T) {
	mock := &MockNotifier{}
	manager := NewManager(mock)

	require.Error(t, manager.RegisterTemplate("", NoticeTemplate{}))

	custom := NoticeTemplate{Subject: "Custom", Text: "Hi {{.Name}}"}
	require.NoError(t, manager.RegisterTemplate(MagicLinkLoginNotice, custom))
	require.NoError(t, manager.Send(MagicLinkLoginNotice, NotificationData{To: "alice@example.com"}))
	require.Len(t, mock.Sent, 1)
}

func TestDefaultTemplates_CoverAllNoticeTypes(t *testing.T) {
	templates := defaultTemplates()
	for _, noticeType := range []NoticeType{MagicLinkLoginNotice, MagicLinkSignupNotice, OneTimeCodeNotice} {
		template, ok := templates[noticeType]
		require.True(t, ok, "missing template for %s", noticeType)
		assert.NotEmpty(t, template.Subject)
		assert.NotEmpty(t, template.Text)
	}
}
