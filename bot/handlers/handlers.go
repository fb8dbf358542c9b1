// Package handlers wires Telegram commands, callback actions and
// conversation steps to the knowledge-base store and navigation
// engine.
package handlers

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"clanbase/bot/nav"
	"clanbase/bot/storage"
	tg "clanbase/core/telegram"
	"clanbase/core/telegram/commands"
	"clanbase/core/telegram/helpers"
	"clanbase/core/telegram/keyboard"
	"clanbase/core/telegram/middleware"
	"clanbase/core/telegram/state"
)

const (
	msgNotFound       = "❌ Не найдено. Возможно, запись была удалена."
	msgSessionExpired = "⏳ Сессия истекла. Отправьте /start, чтобы начать заново."
	msgNoPermission   = "🚫 У вас нет прав для этого действия."
	msgCancelled      = "❌ Действие отменено."
	msgFailure        = "⚠️ Что-то пошло не так. Попробуйте ещё раз."
)

// Handlers binds bot behaviour to its collaborators.
type Handlers struct {
	store    *storage.Store
	views    *nav.Engine
	sessions state.Manager
	isEditor func(userID int64) bool
}

// New builds the handler set. A nil isEditor allows everyone to manage
// content.
func New(store *storage.Store, views *nav.Engine, sessions state.Manager, isEditor func(int64) bool) *Handlers {
	return &Handlers{store: store, views: views, sessions: sessions, isEditor: isEditor}
}

// Register attaches every command, callback action and conversation
// state to the registry.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Главное меню",
		Aliases:     []string{"menu"},
	})
	reg.SetTextFallback(h.DropStrayText)

	// Browsing.
	_ = reg.RegisterCallback(nav.ActionMainMenu, h.MainMenu)
	_ = reg.RegisterCallback(nav.ActionSections, h.guard(h.Sections))
	_ = reg.RegisterCallback(nav.ActionSection, h.guard(h.Section))
	_ = reg.RegisterCallback(nav.ActionPosts, h.guard(h.Posts))
	_ = reg.RegisterCallback(nav.ActionNoop, func(tele.Context) error { return nil })
	_ = reg.RegisterCallback(nav.ActionConversationStop, h.guard(h.CancelConversation))

	// Content management.
	_ = reg.RegisterCallback(nav.ActionSectionCreate, h.editing(h.SectionCreate))
	_ = reg.RegisterCallback(nav.ActionSectionRename, h.editing(h.SectionRename))
	_ = reg.RegisterCallback(nav.ActionSectionDelete, h.editing(h.SectionDelete))
	_ = reg.RegisterCallback(nav.ActionSectionDeleteYes, h.editing(h.SectionDeleteConfirmed))
	_ = reg.RegisterCallback(nav.ActionSubsectionCreate, h.editing(h.SubsectionCreate))
	_ = reg.RegisterCallback(nav.ActionSubsectionRename, h.editing(h.SubsectionRename))
	_ = reg.RegisterCallback(nav.ActionSubsectionDelete, h.editing(h.SubsectionDelete))
	_ = reg.RegisterCallback(nav.ActionSubsectionDelYes, h.editing(h.SubsectionDeleteConfirmed))
	_ = reg.RegisterCallback(nav.ActionPostCreate, h.editing(h.PostCreate))
	_ = reg.RegisterCallback(nav.ActionPostContentType, h.editing(h.PostContentType))
	_ = reg.RegisterCallback(nav.ActionPostDelete, h.editing(h.PostDelete))

	// Conversation input steps.
	state.RegisterHandler(StateSectionName, h.onSectionName)
	state.RegisterHandler(StateSectionRename, h.onSectionRename)
	state.RegisterHandler(StateSubsectionName, h.onSubsectionName)
	state.RegisterHandler(StateSubsectionRename, h.onSubsectionRename)
	state.RegisterHandler(StatePostTitle, h.onPostTitle)
	state.RegisterHandler(StatePostText, h.onPostText)
	state.RegisterHandler(StatePostImage, h.onPostImage)
	state.RegisterHandler(StatePostLinkURL, h.onPostLinkURL)
	state.RegisterHandler(StatePostLinkTitle, h.onPostLinkTitle)
}

// guard requires a live session. Expired or missing sessions get a
// restart prompt instead of the requested action.
func (h *Handlers) guard(fn tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if h.sessions.Get(c.Sender().ID) == nil {
			return helpers.EditOrSendMD(c, msgSessionExpired)
		}
		return fn(c)
	}
}

// editing combines the session guard with the editor permission check.
func (h *Handlers) editing(fn tele.HandlerFunc) tele.HandlerFunc {
	return h.guard(middleware.EditorOnly(middleware.EditorOptions{
		IsEditor: h.isEditor,
		OnReject: func(c tele.Context) error {
			return helpers.EditOrSendMD(c, msgNoPermission)
		},
	}, fn))
}

func (h *Handlers) editor(c tele.Context) bool {
	return h.isEditor == nil || h.isEditor(c.Sender().ID)
}

// render delivers a composed view: photo posts go out as a photo with
// caption, everything else edits the current message in place.
func (h *Handlers) render(c tele.Context, v *nav.View) error {
	markup := keyboard.InlineButtonsRows(v.Rows...)
	if v.Photo != "" {
		return helpers.SendPhotoMD(c, v.Photo, v.Text, markup)
	}
	return helpers.EditOrSendMD(c, v.Text, markup)
}

// fail maps storage errors to user notices. Not-found is an expected
// outcome (stale buttons); anything else propagates for the router to
// log.
func (h *Handlers) fail(c tele.Context, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return helpers.EditOrSendMD(c, msgNotFound)
	}
	_ = helpers.EditOrSendMD(c, msgFailure)
	return err
}
