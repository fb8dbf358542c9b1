package handlers

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"clanbase/core/logger"
	"clanbase/core/telegram/callbacks"
	"clanbase/core/telegram/helpers"
	"clanbase/core/telegram/state"
)

// Start opens the main menu. It creates (or resets) the user's session
// and drops any pending conversation.
func (h *Handlers) Start(c tele.Context) error {
	userID := c.Sender().ID
	h.sessions.Set(userID, state.StateIdle, nil)
	return h.render(c, h.views.MainMenu(h.editor(c)))
}

// MainMenu is the callback twin of Start. It is the only action that
// works without a live session.
func (h *Handlers) MainMenu(c tele.Context) error {
	return h.Start(c)
}

// Sections shows the section list.
func (h *Handlers) Sections(c tele.Context) error {
	view, err := h.views.SectionList(helpers.BuildContext(c), h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// Section shows the subsections of one section.
func (h *Handlers) Section(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	view, err := h.views.SubsectionList(helpers.BuildContext(c), id, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// Posts shows one post page of a subsection.
func (h *Handlers) Posts(c tele.Context) error {
	subID, index, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.Sections(c)
	}
	view, err := h.views.PostPage(helpers.BuildContext(c), subID, int(index), h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// CancelConversation aborts the pending input step and returns to the
// main menu.
func (h *Handlers) CancelConversation(c tele.Context) error {
	userID := c.Sender().ID
	h.sessions.Set(userID, state.StateIdle, nil)
	if err := helpers.EditOrSendMD(c, msgCancelled); err != nil {
		return err
	}
	return h.render(c, h.views.MainMenu(h.editor(c)))
}

// DropStrayText ignores free text arriving outside any conversation.
func (h *Handlers) DropStrayText(c tele.Context) error {
	logger.Debug(helpers.BuildContext(c), "telegram", "text.drop",
		slog.Int64("user_id", c.Sender().ID),
	)
	return nil
}
