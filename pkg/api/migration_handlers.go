package api

import (
	"net/http"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/authdb"
	"github.com/genenetwork/gn-auth/pkg/httputil"
	"github.com/genenetwork/gn-auth/pkg/migrate"
)

// migrateScope is the scope the migration endpoint demands on top of the
// client allow-list.
const migrateScope = "migrate-data"

// migrateUserData moves one user's account and dataset links out of the
// legacy registry. The store-availability check runs before token
// validation: an unconfigured deployment answers 503 to everyone.
func (s *Server) migrateUserData(w http.ResponseWriter, r *http.Request) {
	if s.coordinator == nil || s.boundary == nil ||
		!authdb.Available(s.cfg.Stores.AuthDB) {
		httputil.WriteUnavailable(w, "the data migration service is currently unavailable")
		return
	}

	token, release, err := s.boundary.Acquire(r.Context(), r, migrateScope)
	if err != nil {
		s.countAcquire("rejected")
		httputil.WriteAuthError(w, err)
		return
	}
	defer release()
	s.countAcquire("acquired")

	if err := auth.RequireClient(token, s.cfg.Migration.AllowedClients); err != nil {
		httputil.WriteAuthError(w, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "failed to parse form data")
		return
	}
	result, err := s.coordinator.Migrate(r.Context(), migrate.Request{
		UserID:          r.PostFormValue("user_id"),
		Email:           r.PostFormValue("email"),
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	})
	if err != nil {
		httputil.WriteAuthError(w, err)
		return
	}

	httputil.WriteJSONOrError(w, http.StatusOK, map[string]interface{}{
		"description": result.Description,
		"user":        result.User,
		"group":       result.Group,
	}, "failed to encode migration response")
}
