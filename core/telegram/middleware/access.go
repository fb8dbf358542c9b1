package middleware

import tele "gopkg.in/telebot.v4"

// EditorOptions defines how editor-only checks behave.
type EditorOptions struct {
	// IsEditor decides whether the user may manage content.
	// A nil func allows everyone.
	IsEditor func(userID int64) bool
	OnReject tele.HandlerFunc
}

// EditorOnly wraps a handler so only permitted users can create, edit,
// or delete content. Rejected users get OnReject (or silence).
func EditorOnly(opts EditorOptions, h tele.HandlerFunc) tele.HandlerFunc {
	if opts.IsEditor == nil {
		return h
	}
	return func(c tele.Context) error {
		if !opts.IsEditor(c.Sender().ID) {
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
		return h(c)
	}
}

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the admin user can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID != 0 && c.Sender().ID != opts.AdminID {
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
