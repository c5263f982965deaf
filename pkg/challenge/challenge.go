package challenge

// Channel is a delivery channel a multifactor code can belong to.
type Channel string

const (
	ChannelAuthenticatorApp Channel = "authenticator"
	ChannelSMS              Channel = "sms"
	ChannelBackupCode       Channel = "backup"
)

// channelPriority is the resolution order when two channels accept codes of
// the same length.
var channelPriority = []Channel{ChannelAuthenticatorApp, ChannelSMS, ChannelBackupCode}

// Info represents a pending multifactor challenge issued by the server: the
// one-time nonce proving the prompt was legitimately issued, the user it was
// issued for, and the code length each channel accepts.
//
// An Info is created when the facade reports that a second factor is required
// and is destroyed when the flow succeeds or is abandoned.
type Info struct {
	nonce           string
	userID          int64
	acceptedLengths map[Channel]int
}

// New creates a challenge from a server response.
func New(nonce string, userID int64, acceptedLengths map[Channel]int) *Info {
	lengths := make(map[Channel]int, len(acceptedLengths))
	for ch, l := range acceptedLengths {
		lengths[ch] = l
	}
	return &Info{
		nonce:           nonce,
		userID:          userID,
		acceptedLengths: lengths,
	}
}

// Nonce returns the current nonce. The server rotates nonces after a failed
// social attempt, so callers must read this fresh for every submission.
func (i *Info) Nonce() string { return i.nonce }

// UserID returns the user the challenge was issued for.
func (i *Info) UserID() int64 { return i.userID }

// AcceptedLength returns the code length a channel accepts.
func (i *Info) AcceptedLength(ch Channel) (int, bool) {
	l, ok := i.acceptedLengths[ch]
	return l, ok
}

// ResolveSubmission chooses the channel whose accepted code length matches
// the entered code and returns it with the nonce to submit. A code matching
// no channel is invalid client-side: ok is false and no network call should
// be attempted.
func (i *Info) ResolveSubmission(code string) (Channel, string, bool) {
	for _, ch := range channelPriority {
		if l, ok := i.acceptedLengths[ch]; ok && l == len(code) {
			return ch, i.nonce, true
		}
	}
	return "", "", false
}

// MaxCodeLength returns the longest accepted code length across channels,
// the upper bound the UI should allow while typing. Currently this is the
// backup-code length.
func (i *Info) MaxCodeLength() int {
	max := 0
	for _, l := range i.acceptedLengths {
		if l > max {
			max = l
		}
	}
	return max
}

// RotateNonce overwrites the stored nonce with a replacement the server
// embedded in a rejection. Submitting the old nonce a second time is
// guaranteed to fail, so rotation must happen before the user retries.
// An empty replacement is ignored.
func (i *Info) RotateNonce(nonce string) {
	if nonce == "" {
		return
	}
	i.nonce = nonce
}
