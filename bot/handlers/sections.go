package handlers

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"clanbase/bot/nav"
	"clanbase/core/telegram/callbacks"
	"clanbase/core/telegram/helpers"
	"clanbase/core/telegram/keyboard"
)

func cancelMarkup() *tele.ReplyMarkup {
	return keyboard.SingleCancelMarkup(nav.ActionConversationStop, "cancel", "❌ Отмена")
}

// SectionCreate asks for the new section's name.
func (h *Handlers) SectionCreate(c tele.Context) error {
	h.sessions.Set(c.Sender().ID, StateSectionName, SectionDraft{})
	return helpers.EditOrSendMD(c, "✏️ Введите название нового раздела:", cancelMarkup())
}

func (h *Handlers) onSectionName(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return helpers.SendMD(c, "Название не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	ctx := helpers.BuildContext(c)
	h.sessions.SetState(c.Sender().ID, stateIdle)
	if _, err := h.store.CreateSection(ctx, name, "", c.Sender().ID); err != nil {
		return h.fail(c, err)
	}
	return h.render(c, h.views.MainMenu(h.editor(c)))
}

// SectionRename asks for the section's new name.
func (h *Handlers) SectionRename(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	h.sessions.Set(c.Sender().ID, StateSectionRename, SectionDraft{SectionID: id})
	return helpers.EditOrSendMD(c, "✏️ Введите новое название раздела:", cancelMarkup())
}

func (h *Handlers) onSectionRename(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return helpers.SendMD(c, "Название не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[SectionDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	h.sessions.SetState(c.Sender().ID, stateIdle)
	if err := h.store.UpdateSectionName(ctx, draft.SectionID, name); err != nil {
		return h.fail(c, err)
	}
	return h.Sections(c)
}

// SectionDelete deletes an empty section at once and asks for
// confirmation when the section still has content.
func (h *Handlers) SectionDelete(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	counts, err := h.store.SectionCounts(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	if counts.Subsections == 0 && counts.Posts == 0 {
		if err := h.store.DeleteSection(ctx, id); err != nil {
			return h.fail(c, err)
		}
		return h.Sections(c)
	}
	text := fmt.Sprintf(
		"⚠️ Раздел содержит %d подразд. и %d записей. Удалить вместе со всем содержимым?",
		counts.Subsections, counts.Posts,
	)
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "🗑 Да, удалить", Unique: nav.ActionSectionDeleteYes, Data: fmt.Sprintf("%d", id)},
			{Text: "❌ Отмена", Unique: nav.ActionSections, Data: "back"},
		},
	)
	return helpers.EditOrSendMD(c, text, markup)
}

// SectionDeleteConfirmed performs the cascading delete.
func (h *Handlers) SectionDeleteConfirmed(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	if err := h.store.DeleteSection(helpers.BuildContext(c), id); err != nil {
		return h.fail(c, err)
	}
	return h.Sections(c)
}

// SubsectionCreate asks for the new subsection's name.
func (h *Handlers) SubsectionCreate(c tele.Context) error {
	sectionID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	h.sessions.Set(c.Sender().ID, StateSubsectionName, SubsectionDraft{SectionID: sectionID})
	return helpers.EditOrSendMD(c, "✏️ Введите название нового подраздела:", cancelMarkup())
}

func (h *Handlers) onSubsectionName(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return helpers.SendMD(c, "Название не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[SubsectionDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	h.sessions.SetState(c.Sender().ID, stateIdle)
	if _, err := h.store.CreateSubsection(ctx, draft.SectionID, name, "", c.Sender().ID); err != nil {
		return h.fail(c, err)
	}
	view, err := h.views.SubsectionList(ctx, draft.SectionID, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// SubsectionRename asks for the subsection's new name.
func (h *Handlers) SubsectionRename(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	h.sessions.Set(c.Sender().ID, StateSubsectionRename, SubsectionDraft{SubsectionID: id})
	return helpers.EditOrSendMD(c, "✏️ Введите новое название подраздела:", cancelMarkup())
}

func (h *Handlers) onSubsectionRename(c tele.Context) error {
	name := strings.TrimSpace(c.Text())
	if name == "" {
		return helpers.SendMD(c, "Название не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[SubsectionDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	h.sessions.SetState(c.Sender().ID, stateIdle)
	if err := h.store.UpdateSubsectionName(ctx, draft.SubsectionID, name); err != nil {
		return h.fail(c, err)
	}
	sub, err := h.store.GetSubsection(ctx, draft.SubsectionID)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := h.views.SubsectionList(ctx, sub.SectionID, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// SubsectionDelete deletes an empty subsection at once and asks for
// confirmation when it still has posts.
func (h *Handlers) SubsectionDelete(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	sub, err := h.store.GetSubsection(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.store.CountPosts(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	if n == 0 {
		if err := h.store.DeleteSubsection(ctx, id); err != nil {
			return h.fail(c, err)
		}
		view, err := h.views.SubsectionList(ctx, sub.SectionID, h.editor(c))
		if err != nil {
			return h.fail(c, err)
		}
		return h.render(c, view)
	}
	text := fmt.Sprintf("⚠️ Подраздел содержит %d записей. Удалить вместе с ними?", n)
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "🗑 Да, удалить", Unique: nav.ActionSubsectionDelYes, Data: fmt.Sprintf("%d", id)},
			{Text: "❌ Отмена", Unique: nav.ActionSection, Data: fmt.Sprintf("%d", sub.SectionID)},
		},
	)
	return helpers.EditOrSendMD(c, text, markup)
}

// SubsectionDeleteConfirmed performs the cascading delete.
func (h *Handlers) SubsectionDeleteConfirmed(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	sub, err := h.store.GetSubsection(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.store.DeleteSubsection(ctx, id); err != nil {
		return h.fail(c, err)
	}
	view, err := h.views.SubsectionList(ctx, sub.SectionID, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}
