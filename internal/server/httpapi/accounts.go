package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/netguard/internal/common"
	"github.com/dmitrijs2005/netguard/internal/server/models"
	"github.com/dmitrijs2005/netguard/internal/server/policy"
	"github.com/dmitrijs2005/netguard/internal/server/services"
	"github.com/gorilla/mux"
)

type credentialsRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type accountRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
	Role     string `json:"role"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	Confirm     string `json:"confirm_password"`
}

// optionalRole parses a role field; empty means "not given".
func optionalRole(s string) (models.Role, error) {
	if s == "" {
		return "", nil
	}
	return policy.ParseRole(s)
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, "/login")
		return
	}

	res, err := s.sessions.Login(r.Context(), req.UserName, req.Password, r.URL.Query().Get("next"))
	if err != nil {
		s.writeError(w, r, err, "/login")
		return
	}

	setSessionCookie(w, res.Token, res.Expires)
	writeJSON(w, http.StatusOK, map[string]any{
		"account":  newAccountView(res.Account),
		"redirect": res.Destination,
	})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		if err := s.sessions.Logout(r.Context(), c.Value); err != nil {
			s.writeError(w, r, err, "")
			return
		}
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/login"})
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	const origin = "/register"

	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	if req.Confirm != "" && req.Password != req.Confirm {
		s.writeError(w, r, common.ErrPasswordMismatch, origin)
		return
	}
	role, err := optionalRole(req.Role)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	acc, err := s.accounts.Register(r.Context(), req.UserName, req.Email, req.Password, role)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"account":  newAccountView(acc),
		"redirect": "/login",
	})
}

func (s *HTTPServer) profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newAccountView(principalFrom(r.Context())))
}

func (s *HTTPServer) editProfile(w http.ResponseWriter, r *http.Request) {
	const origin = "/profile"

	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	acc, err := s.accounts.EditOwnProfile(r.Context(), principalFrom(r.Context()), req.UserName, req.Email)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(acc))
}

func (s *HTTPServer) changePassword(w http.ResponseWriter, r *http.Request) {
	const origin = "/change_password"

	var req passwordRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	err := s.accounts.ChangeOwnPassword(r.Context(), principalFrom(r.Context()), req.OldPassword, req.NewPassword, req.Confirm)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/profile"})
}

func (s *HTTPServer) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.accounts.ListAccounts(r.Context(), principalFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newAccountViews(list))
}

func (s *HTTPServer) createUser(w http.ResponseWriter, r *http.Request) {
	const origin = "/admin/users"

	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	role, err := optionalRole(req.Role)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	acc, err := s.accounts.CreateAccountAsAdmin(r.Context(), principalFrom(r.Context()), services.NewAccount{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Confirm:  req.Confirm,
		Role:     role,
	})
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountView(acc))
}

func (s *HTTPServer) getUser(w http.ResponseWriter, r *http.Request) {
	acc, err := s.accounts.GetAccount(r.Context(), principalFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err, "/admin/users")
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(acc))
}

func (s *HTTPServer) editUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	origin := "/admin/users/" + id

	var req accountRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	role, err := optionalRole(req.Role)
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}

	acc, err := s.accounts.EditAccount(r.Context(), principalFrom(r.Context()), id, services.AccountChanges{
		UserName: req.UserName,
		Email:    req.Email,
		Role:     role,
		Password: req.Password,
		Confirm:  req.Confirm,
	})
	if err != nil {
		s.writeError(w, r, err, origin)
		return
	}
	writeJSON(w, http.StatusOK, newAccountView(acc))
}

func (s *HTTPServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.DeleteAccount(r.Context(), principalFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err, "/admin/users")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
