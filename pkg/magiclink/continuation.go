package magiclink

import (
	"time"

	"github.com/wordpress-mobile/authflow/pkg/credentials"
)

// Continuation is the minimal durable state needed to resume an
// authentication flow after the app was suspended (or terminated) while the
// user went off to tap an emailed link: whose mailbox the link went to and
// why it was requested.
//
// At most one continuation is alive at a time; requesting a new link
// overwrites the previous record.
type Continuation struct {
	// RequestedEmail is the address the link was emailed to. The redeemed
	// token is not tied to an identity client-side, so this is what binds
	// the token back to an account.
	RequestedEmail string `json:"requested_email"`

	// Purpose records whether the link was requested for login or signup.
	Purpose credentials.Purpose `json:"purpose"`

	// RelatedAccountRef is an opaque reference used by the secondary
	// account-linking case. Empty otherwise.
	RelatedAccountRef string `json:"related_account_ref,omitempty"`

	RequestedAt time.Time `json:"requested_at"`
}
