package view

import (
	"net/http"
	"strings"

	"github.com/loomworks/erpconsole/internal/shared"
)

// SessionEmailKey is the session value holding the signed-in user's email.
const SessionEmailKey = "user_email"

// Layout assembles the TemplateData every console page shares: the sidebar,
// the CSRF token, the pending flash message and the activity flag.
type Layout struct {
	CSRF *shared.CSRFManager
	Nav  []NavItem
}

// Data builds TemplateData for r. It pops at most one flash message.
func (l *Layout) Data(r *http.Request, title string, data any) TemplateData {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Busy:        shared.ActivityFromContext(ctx).InFlight() > 1,
		Data:        data,
	}
	if l == nil {
		return td
	}
	if sess != nil {
		td.Flash = sess.PopFlash()
		td.UserEmail = sess.Get(SessionEmailKey)
		if l.CSRF != nil {
			td.CSRFToken, _ = l.CSRF.EnsureToken(ctx, sess)
		}
	}
	td.Nav = make([]NavItem, len(l.Nav))
	for i, item := range l.Nav {
		item.Active = r.URL.Path == item.Path || (item.Path != "/" && strings.HasPrefix(r.URL.Path, item.Path+"/"))
		td.Nav[i] = item
	}
	return td
}

// Flash queues a message on the request session.
func Flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
}
