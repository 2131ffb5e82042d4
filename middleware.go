package main

import (
	"net"
	"net/http"
	"strings"
)

const adminLoginPath = "/admin/login"

// OriginPolicy decides which browser origins may receive cross-origin
// response headers. The allow-list is fixed at startup.
type OriginPolicy struct {
	allowed map[string]bool
}

func NewOriginPolicy(origins []string) *OriginPolicy {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &OriginPolicy{allowed: allowed}
}

// Allowed reports whether the declared origin is on the allow-list.
func (p *OriginPolicy) Allowed(origin string) bool {
	return origin != "" && p.allowed[origin]
}

// Decorate attaches CORS headers. Allow-Origin echoes the exact matched
// origin, never a wildcard, and only together with Allow-Credentials; the
// methods, headers and max-age headers are attached regardless of match.
// A non-matching origin gets no allow header and the browser blocks script
// access client-side — the response itself is still delivered.
func (p *OriginPolicy) Decorate(h http.Header, origin string) {
	if p.Allowed(origin) {
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With, Authorization")
	h.Set("Access-Control-Max-Age", "600")
}

// secureHeaders attaches the fixed security headers to every response and
// caps the request body size. The CSP lists the third-party script and font
// origins the site embeds.
func secureHeaders(cfg *Config) func(http.Handler) http.Handler {
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://www.googletagmanager.com https://maps.googleapis.com",
		"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
		"font-src 'self' https://fonts.gstatic.com",
		"img-src 'self' data: https:",
		"connect-src 'self' ws: wss:",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Content-Security-Policy", csp)

			if cfg.EnableHTTPS {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestSize)

			next.ServeHTTP(w, r)
		})
	}
}

// sessionGuard protects the admin UI tree. Requests without a valid session
// cookie are redirected to the login page; the login page itself is always
// reachable. A stale cookie is not cleared on redirect — it is simply
// re-evaluated on the next request.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == adminLoginPath {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Redirect(w, r, adminLoginPath, http.StatusFound)
			return
		}
		if _, err := s.tokens.Validate(cookie.Value); err != nil {
			http.Redirect(w, r, adminLoginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireAdmin wraps a mutating API handler. The session cookie is validated
// before the handler runs; on failure the handler is never invoked and the
// client gets a 401 JSON body. Pre-flight OPTIONS requests are answered here
// directly, carrying the origin policy's headers.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.origins.Decorate(w.Header(), r.Header.Get("Origin"))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		if _, err := s.tokens.Validate(cookie.Value); err != nil {
			respondError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		next(w, r)
	}
}

// publicRead wraps a read-only API handler: the request always proceeds, the
// response carries CORS headers per the origin policy.
func (s *Server) publicRead(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.origins.Decorate(w.Header(), r.Header.Get("Origin"))
		next(w, r)
	}
}

// clientIP extracts the caller's network address, honoring the proxy headers
// set by the CDN in front of the site.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ips := strings.Split(fwd, ",")
		return strings.TrimSpace(ips[0])
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
