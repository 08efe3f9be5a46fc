package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Zone classifies a request path by the authorization it requires.
type Zone int

const (
	ZonePublic Zone = iota
	ZoneStudent
	ZoneAdmin
)

// Decision is the gate's verdict for one request. Exactly one of the three
// shapes applies: allow, redirect, or a terminal status (403).
type Decision struct {
	Allow      bool
	RedirectTo string
	Status     int
}

func allow() Decision                 { return Decision{Allow: true} }
func redirect(target string) Decision { return Decision{RedirectTo: target} }
func forbid() Decision                { return Decision{Status: http.StatusForbidden} }

// Gate decides, per request path and resolved role, whether the caller may
// proceed and where to send them otherwise. Stateless; safe for concurrent
// use.
type Gate struct {
	adminPrefixes   []string
	studentPrefixes []string
	staffPrefixes   []string
	loginPaths      []string

	LoginPath   string
	AdminHome   string
	StudentHome string
}

func NewGate() *Gate {
	return &Gate{
		adminPrefixes:   []string{"/admin", "/api/v1/admin"},
		studentPrefixes: []string{"/portal", "/api/v1/portal"},
		staffPrefixes:   []string{"/admin/staff", "/api/v1/admin/staff"},
		loginPaths:      []string{"/login"},
		LoginPath:       "/login",
		AdminHome:       "/admin",
		StudentHome:     "/portal",
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

func (g *Gate) ZoneOf(path string) Zone {
	switch {
	case hasPrefix(path, g.adminPrefixes):
		return ZoneAdmin
	case hasPrefix(path, g.studentPrefixes):
		return ZoneStudent
	default:
		return ZonePublic
	}
}

// IsStaffResource reports whether path falls under staff management, which
// requires role admin exactly. This is a narrower gate nested inside the
// admin zone, not a replacement for it.
func (g *Gate) IsStaffResource(path string) bool {
	return hasPrefix(path, g.staffPrefixes)
}

func (g *Gate) isLoginPath(path string) bool {
	for _, p := range g.loginPaths {
		if path == p {
			return true
		}
	}
	return false
}

// Home returns the landing page for an authenticated role.
func (g *Gate) Home(role string) string {
	if role == RoleAdmin || role == RoleSensei {
		return g.AdminHome
	}
	return g.StudentHome
}

// Decide evaluates the zone table. role == "" means anonymous.
func (g *Gate) Decide(path, role string) Decision {
	// An authenticated caller asking for the login page is sent to their
	// landing page instead of re-authenticating.
	if g.isLoginPath(path) {
		if role == "" {
			return allow()
		}
		return redirect(g.Home(role))
	}

	switch g.ZoneOf(path) {
	case ZonePublic:
		return allow()
	case ZoneStudent:
		if role == "" {
			return redirect(g.LoginPath)
		}
		return allow()
	default: // ZoneAdmin
		if role == "" {
			return redirect(g.LoginPath)
		}
		if role == RoleStudent {
			// 403, never a redirect: a redirect to login would loop for an
			// already-authenticated caller.
			return forbid()
		}
		if g.IsStaffResource(path) && role != RoleAdmin {
			return forbid()
		}
		return allow()
	}
}

const (
	// SessionCookie carries the token for SPA page loads; API clients use
	// the Authorization header.
	SessionCookie = "dojo_session"
)

// Gatekeeper resolves the caller's claims and enforces the gate on every
// request. Expired or tampered tokens are treated as anonymous.
func Gatekeeper(g *Gate, svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		sub, role := "", ""
		if tok := tokenFromRequest(c); tok != "" {
			if claims, err := svc.ParseToken(tok); err == nil {
				sub, role = claims.Subject, claims.Role
			}
		}

		d := g.Decide(path, role)
		switch {
		case d.Allow:
			c.Set(CtxUserIDKey, sub)
			c.Set(CtxRoleKey, role)
			c.Next()
		case d.RedirectTo != "":
			if isAPIPath(path) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
				return
			}
			target := d.RedirectTo
			if target == g.LoginPath {
				target += "?next=" + url.QueryEscape(path)
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
		default:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		}
	}
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// tokenFromRequest prefers the Authorization header, then the session cookie.
func tokenFromRequest(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if tok, err := c.Cookie(SessionCookie); err == nil {
		return tok
	}
	return ""
}
