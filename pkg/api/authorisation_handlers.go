package api

import (
	"net/http"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/httputil"
	"github.com/genenetwork/gn-auth/pkg/observability"
)

// traitAuthorisationRequest is the body of GET /authorisation.
type traitAuthorisationRequest struct {
	Traits []string `json:"traits"`
}

// traitAuthorisation reports the caller's privileges per trait. The bearer
// token is optional: an absent token degrades to the anonymous public view,
// while a presented-but-bad token is a hard failure.
func (s *Server) traitAuthorisation(w http.ResponseWriter, r *http.Request) {
	if s.access == nil || s.boundary == nil {
		httputil.WriteUnavailable(w, "the authorisation service is currently unavailable")
		return
	}

	var req traitAuthorisationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	ctx := r.Context()
	var caller *auth.User
	token, release, err := s.boundary.Acquire(ctx, r, "profile", "group", "resource")
	switch {
	case err == nil:
		defer release()
		caller = &token.User
		ctx = observability.WithCallerID(ctx, token.User.UserID.String())
		s.countAcquire("acquired")
	case auth.IsMissingAuthorization(err):
		s.countAcquire("anonymous")
	default:
		s.countAcquire("rejected")
		httputil.WriteAuthError(w, err)
		return
	}

	result, err := s.access.ResolveRequestPrivileges(ctx, caller, req.Traits)
	if err != nil {
		httputil.WriteAuthError(w, err)
		return
	}
	httputil.WriteJSONOrError(w, http.StatusOK, result, "failed to encode authorisation response")
}

func (s *Server) countAcquire(result string) {
	if s.metrics != nil {
		s.metrics.TokenAcquireTotal.WithLabelValues(result).Inc()
	}
}
