package api

import (
	"github.com/jinzhu/copier"

	"github.com/wordpress-mobile/authflow/pkg/autherr"
	"github.com/wordpress-mobile/authflow/pkg/challenge"
	"github.com/wordpress-mobile/authflow/pkg/flow"
)

// Request bodies.

type IdentifierRequest struct {
	Identifier string `json:"identifier"`
}

type SiteAddressRequest struct {
	SiteAddress string `json:"site_address"`
}

type PasswordRequest struct {
	Password string `json:"password"`
}

type CodeRequest struct {
	Code string `json:"code"`
}

type ResumeRequest struct {
	Token string `json:"token"`
}

type SocialTokenRequest struct {
	Token   string `json:"token"`
	Email   string `json:"email,omitempty"`
	Service string `json:"service"`
}

type RestartRequest struct {
	Purpose string `json:"purpose,omitempty"`
}

// Response bodies.

type ErrorResponse struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Hint    string                 `json:"hint,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type ChallengeResponse struct {
	UserID        int64 `json:"user_id"`
	MaxCodeLength int   `json:"max_code_length"`
}

// FlowResponse is the state snapshot returned after every operation.
type FlowResponse struct {
	State           string             `json:"state"`
	Busy            bool               `json:"busy"`
	Cancellable     bool               `json:"cancellable"`
	Notice          string             `json:"notice,omitempty"`
	Error           *ErrorResponse     `json:"error,omitempty"`
	Challenge       *ChallengeResponse `json:"challenge,omitempty"`
	ConnectionEmail string             `json:"connection_email,omitempty"`
	EndpointURL     string             `json:"endpoint_url,omitempty"`
	SessionToken    string             `json:"session_token,omitempty"`

	// RequiredTwoFactor is true on completions that went through a
	// second-factor prompt.
	RequiredTwoFactor bool `json:"required_two_factor,omitempty"`
}

type WhoamiResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

func errorResponse(err *autherr.Error) *ErrorResponse {
	if err == nil {
		return nil
	}
	resp := &ErrorResponse{}
	if copyErr := copier.Copy(resp, err); copyErr != nil {
		resp.Message = err.Message
		resp.Details = err.Details
	}
	resp.Kind = string(err.Kind)
	resp.Hint = string(err.Hint)
	return resp
}

func challengeResponse(info *challenge.Info) *ChallengeResponse {
	if info == nil {
		return nil
	}
	return &ChallengeResponse{
		UserID:        info.UserID(),
		MaxCodeLength: info.MaxCodeLength(),
	}
}

func flowResponse(transition flow.Transition, cancellable bool, endpointURL, sessionToken string) FlowResponse {
	return FlowResponse{
		State:           string(transition.State),
		Busy:            transition.Busy,
		Cancellable:     cancellable,
		Notice:          string(transition.Notice),
		Error:           errorResponse(transition.Err),
		Challenge:       challengeResponse(transition.Challenge),
		ConnectionEmail: transition.ConnectionEmail,
		EndpointURL:     endpointURL,
		SessionToken:    sessionToken,

		RequiredTwoFactor: transition.RequiredTwoFactor,
	}
}
