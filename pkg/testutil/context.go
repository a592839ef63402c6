package testutil

import (
	"net/http"

	id "policydesk/pkg/domain"
	"policydesk/pkg/requestcontext"
)

// WithAgent marks the request as authenticated, as the auth middleware would.
func WithAgent(req *http.Request, agentID id.AgentID, name string) *http.Request {
	return req.WithContext(requestcontext.WithAgent(req.Context(), agentID, name))
}
