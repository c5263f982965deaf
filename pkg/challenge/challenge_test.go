package challenge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestInfo() *Info {
	return New("nonce-1", 42, map[Channel]int{
		ChannelAuthenticatorApp: 6,
		ChannelSMS:              7,
		ChannelBackupCode:       8,
	})
}

func TestResolveSubmission(t *testing.T) {
	info := newTestInfo()

	tests := []struct {
		name    string
		code    string
		want    Channel
		matched bool
	}{
		{"six digits resolve to authenticator", "123456", ChannelAuthenticatorApp, true},
		{"seven digits resolve to sms", "1234567", ChannelSMS, true},
		{"eight digits resolve to backup", "12345678", ChannelBackupCode, true},
		{"four digits match nothing", "1234", "", false},
		{"empty matches nothing", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, nonce, ok := info.ResolveSubmission(tt.code)
			assert.Equal(t, tt.matched, ok)
			assert.Equal(t, tt.want, ch)
			if ok {
				assert.Equal(t, "nonce-1", nonce)
			}
		})
	}
}

func TestResolveSubmission_PriorityOnCollision(t *testing.T) {
	// Authenticator and SMS both accepting six digits resolves to the
	// authenticator.
	info := New("nonce-1", 42, map[Channel]int{
		ChannelAuthenticatorApp: 6,
		ChannelSMS:              6,
	})
	ch, _, ok := info.ResolveSubmission("123456")
	assert.True(t, ok)
	assert.Equal(t, ChannelAuthenticatorApp, ch)
}

func TestMaxCodeLength(t *testing.T) {
	assert.Equal(t, 8, newTestInfo().MaxCodeLength())
	assert.Equal(t, 0, New("n", 1, nil).MaxCodeLength())
}

func TestRotateNonce(t *testing.T) {
	info := newTestInfo()

	info.RotateNonce("nonce-2")
	_, nonce, ok := info.ResolveSubmission("123456")
	assert.True(t, ok)
	assert.Equal(t, "nonce-2", nonce)

	// Empty replacements are ignored.
	info.RotateNonce("")
	assert.Equal(t, "nonce-2", info.Nonce())
}

func TestNew_CopiesLengths(t *testing.T) {
	lengths := map[Channel]int{ChannelAuthenticatorApp: 6}
	info := New("nonce-1", 42, lengths)
	lengths[ChannelAuthenticatorApp] = 9

	l, ok := info.AcceptedLength(ChannelAuthenticatorApp)
	assert.True(t, ok)
	assert.Equal(t, 6, l)
}
