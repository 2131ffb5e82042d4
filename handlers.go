package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server wires the admission components to the HTTP surface.
type Server struct {
	cfg        *Config
	tokens     *TokenIssuer
	verifier   *CredentialVerifier
	loginLimit *Limiter
	leadLimit  *Limiter
	origins    *OriginPolicy
	leads      *LeadStore
	content    *ContentStore
	clients    *ClientManager
	startedAt  time.Time
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("error encoding JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, APIResponse{Success: false, Error: message})
}

// sessionCookie builds the admin session cookie. HTTP-only and strict
// same-site always; Secure when the site is served over TLS.
func (s *Server) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.EnableHTTPS,
		SameSite: http.SameSiteStrictMode,
	}
}

// handleLogin establishes the admin session. The attempt limiter runs before
// credentials are even inspected; 5 denied attempts lock the address out of
// the window regardless of whether later attempts carry correct credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.loginLimit.Admit(ip, r.UserAgent()) {
		log.Printf("login throttled for %s", ip)
		respondError(w, http.StatusTooManyRequests, errTooManyAttempts)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, errInvalidInput)
		return
	}

	if !s.verifier.Verify(req.Username, req.Password) {
		log.Printf("failed login attempt from %s", ip)
		respondError(w, http.StatusUnauthorized, errBadCredentials)
		return
	}

	token, err := s.tokens.Issue()
	if err != nil {
		log.Printf("failed to issue session token: %v", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	http.SetCookie(w, s.sessionCookie(token))
	log.Printf("admin login from %s", ip)
	respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

// handleLogout clears the client cookie. There is no server-side revocation;
// the token itself stays valid until its natural expiry.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie := s.sessionCookie("")
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
	respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

// handleSubmitLead captures a contact request from the public site. The lead
// limiter admits known crawlers unconditionally so preview fetchers never see
// a 429; everyone else gets 10 requests per minute per address.
func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if !s.leadLimit.Admit(ip, r.UserAgent()) {
		log.Printf("lead submission throttled for %s", ip)
		respondError(w, http.StatusTooManyRequests, errTooManyLeads)
		return
	}

	var lead Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := lead.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.leads.Add(&lead); err != nil {
		log.Printf("failed to store lead: %v", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	s.clients.Broadcast(map[string]interface{}{
		"type": "lead",
		"lead": lead,
	})

	respondJSON(w, http.StatusCreated, APIResponse{Success: true, Data: lead})
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.leads.All()
	if err != nil {
		log.Printf("failed to list leads: %v", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: leads})
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.leads.Delete(id); err != nil {
		if errors.Is(err, ErrInvalidID) {
			respondError(w, http.StatusBadRequest, errInvalidInput)
			return
		}
		log.Printf("failed to delete lead %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

// handleListContent is the public read API: published entries only, response
// decorated by the origin policy in the publicRead wrapper.
func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	entries, err := s.content.Published()
	if err != nil {
		log.Printf("failed to list content: %v", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: entries})
}

func (s *Server) handleCreateContent(w http.ResponseWriter, r *http.Request) {
	var entry ContentEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := entry.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.content.Add(&entry); err != nil {
		log.Printf("failed to create content entry: %v", err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusCreated, APIResponse{Success: true, Data: entry})
}

func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	var entry ContentEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	entry.ID = mux.Vars(r)["id"]
	if err := entry.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.content.Update(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, errNotFound)
			return
		}
		log.Printf("failed to update content entry %s: %v", entry.ID, err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Data: entry})
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.content.Delete(id); err != nil {
		if errors.Is(err, ErrInvalidID) {
			respondError(w, http.StatusBadRequest, errInvalidInput)
			return
		}
		log.Printf("failed to delete content entry %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}
	respondJSON(w, http.StatusOK, APIResponse{Success: true})
}

// Admin UI shell. Page rendering proper lives in the site frontend; the
// backend serves a minimal shell so the protected tree has something behind
// the guard.
const adminLoginPage = `<!DOCTYPE html>
<html>
<head><title>Casavelle Admin — Login</title></head>
<body>
<form id="login">
  <input name="username" placeholder="Username" autocomplete="username">
  <input name="password" type="password" placeholder="Password" autocomplete="current-password">
  <button type="submit">Sign in</button>
</form>
<script>
document.getElementById('login').addEventListener('submit', async (e) => {
  e.preventDefault();
  const form = new FormData(e.target);
  const res = await fetch('/api/v1/auth/login', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({username: form.get('username'), password: form.get('password')})
  });
  if (res.ok) { window.location = '/admin/'; }
  else { const body = await res.json(); alert(body.error); }
});
</script>
</body>
</html>`

const adminHomePage = `<!DOCTYPE html>
<html>
<head><title>Casavelle Admin</title></head>
<body>
<h1>Casavelle Admin</h1>
<div id="leads"></div>
<script>
const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/admin/ws');
ws.onmessage = (ev) => {
  const msg = JSON.parse(ev.data);
  if (msg.type === 'lead') {
    const div = document.createElement('div');
    div.textContent = 'New lead: ' + msg.lead.name + ' (' + msg.lead.phone + ')';
    document.getElementById('leads').prepend(div);
  }
};
</script>
</body>
</html>`

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(adminLoginPage))
}

func (s *Server) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(adminHomePage))
}
