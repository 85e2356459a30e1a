package authserver

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"shopgate/pkg/middleware"
	"shopgate/pkg/problems"
)

var errCredentialsInURL = &problems.Error{Code: problems.EInvalidRequest, Msg: "credentials must be sent in a POST body"}

// RegisterHTTP mounts the token and authorization endpoints.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Post("/oauth/token", s.handleToken)
	r.Get("/oauth/authorize", s.handleAuthorize)
	r.Post("/oauth/authorize", s.handleAuthorize)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		problems.WriteOAuth(w, problems.New(problems.EInvalidRequest, "malformed form body"))
		return
	}
	resp, err := s.Token(r.Context(), r.PostForm, middleware.ClientID(r))
	if err != nil {
		problems.WriteOAuth(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		problems.WriteOAuth(w, problems.New(problems.EInvalidRequest, "malformed form body"))
		return
	}
	if r.URL.Query().Has("password") {
		problems.WriteOAuth(w, errCredentialsInURL)
		return
	}
	location, err := s.Authorize(r.Context(), authorizeParams(r), middleware.ClientID(r))
	if location != "" {
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, location, http.StatusFound)
		return
	}
	problems.WriteOAuth(w, err)
}

// authorizeParams merges query and body parameters but takes the login
// fields from the POST body only.
func authorizeParams(r *http.Request) url.Values {
	params := make(url.Values, len(r.Form))
	for k, v := range r.Form {
		params[k] = v
	}
	params.Del("username")
	params.Del("password")
	for _, k := range []string{"username", "password"} {
		if v, ok := r.PostForm[k]; ok {
			params[k] = v
		}
	}
	return params
}
