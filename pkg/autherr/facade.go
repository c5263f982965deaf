package autherr

import "fmt"

// Facade error domains. Every raw error a facade surfaces carries a domain
// tag and an HTTP-style numeric code; only the classifier inspects them.
const (
	DomainAuth      = "auth"
	DomainDiscovery = "discovery"
	DomainNetwork   = "network"
	DomainSocial    = "social"
)

// Codes used within facade domains. The values mirror HTTP statuses.
const (
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeNonceExpired = 410
	// CodeNoEndpoint means discovery reached a live site whose URL is valid
	// but the expected endpoint capability is missing, typically a
	// Jetpack-connected site that must be reached through the hosted service.
	CodeNoEndpoint = 422
)

// FacadeError is the opaque error shape the network boundary returns.
// Message may carry server-supplied human-readable text (XML-RPC fault
// strings and the like).
type FacadeError struct {
	Domain  string
	Code    int
	Message string
}

func (e *FacadeError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s/%d: %s", e.Domain, e.Code, e.Message)
	}
	return fmt.Sprintf("%s/%d", e.Domain, e.Code)
}

// NewFacadeError builds a raw facade error.
func NewFacadeError(domain string, code int, message string) *FacadeError {
	return &FacadeError{Domain: domain, Code: code, Message: message}
}
