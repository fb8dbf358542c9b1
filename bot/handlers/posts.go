package handlers

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"clanbase/bot/nav"
	"clanbase/bot/storage"
	"clanbase/core/telegram/callbacks"
	"clanbase/core/telegram/helpers"
	"clanbase/core/telegram/keyboard"
)

// PostCreate starts the post pipeline by asking for a title.
func (h *Handlers) PostCreate(c tele.Context) error {
	subID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.Sections(c)
	}
	if _, err := h.store.GetSubsection(helpers.BuildContext(c), subID); err != nil {
		return h.fail(c, err)
	}
	h.sessions.Set(c.Sender().ID, StatePostTitle, PostDraft{SubsectionID: subID})
	return helpers.EditOrSendMD(c, "✏️ Введите заголовок записи:", cancelMarkup())
}

func (h *Handlers) onPostTitle(c tele.Context) error {
	title := strings.TrimSpace(c.Text())
	if title == "" {
		return helpers.SendMD(c, "Заголовок не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	draft.Title = title
	h.sessions.Set(c.Sender().ID, StatePostTitle, draft)

	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "📄 Текст", Unique: nav.ActionPostContentType, Data: string(storage.ContentText)},
			{Text: "🖼 Картинка", Unique: nav.ActionPostContentType, Data: string(storage.ContentImage)},
		},
		[]keyboard.InlineBtn{
			{Text: "🔗 Ссылка", Unique: nav.ActionPostContentType, Data: string(storage.ContentLink)},
			{Text: "🖼+🔗 Картинка и ссылка", Unique: nav.ActionPostContentType, Data: string(storage.ContentMixed)},
		},
		[]keyboard.InlineBtn{
			{Text: "❌ Отмена", Unique: nav.ActionConversationStop, Data: "cancel"},
		},
	)
	return helpers.SendMD(c, "Выберите тип содержимого:", markup)
}

// PostContentType fixes the content type and routes to the first input
// step of the chosen pipeline.
func (h *Handlers) PostContentType(c tele.Context) error {
	kind := storage.ContentType(callbacks.CallbackPayload(c))
	if !kind.Valid() {
		return helpers.EditOrSendMD(c, msgFailure)
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok || draft.Title == "" {
		return h.Sections(c)
	}
	draft.ContentType = kind
	h.sessions.Set(c.Sender().ID, firstInputState(kind), draft)

	switch firstInputState(kind) {
	case StatePostText:
		return helpers.EditOrSendMD(c, "✏️ Введите текст записи:", cancelMarkup())
	case StatePostImage:
		return helpers.EditOrSendMD(c, "🖼 Отправьте картинку:", cancelMarkup())
	case StatePostLinkURL:
		return helpers.EditOrSendMD(c, "🔗 Отправьте ссылку:", cancelMarkup())
	}
	return nil
}

func (h *Handlers) onPostText(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text == "" {
		return helpers.SendMD(c, "Текст не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	draft.Text = text
	return h.finishPost(c, draft)
}

func (h *Handlers) onPostImage(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return helpers.SendMD(c, "Нужна именно картинка. Отправьте фото:", cancelMarkup())
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	draft.ImageFileID = photo.FileID

	next, done := afterImageState(draft.ContentType)
	if done {
		return h.finishPost(c, draft)
	}
	h.sessions.Set(c.Sender().ID, next, draft)
	return helpers.SendMD(c, "🔗 Теперь отправьте ссылку:", cancelMarkup())
}

func (h *Handlers) onPostLinkURL(c tele.Context) error {
	url := strings.TrimSpace(c.Text())
	if url == "" {
		return helpers.SendMD(c, "Ссылка не может быть пустой. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	draft.LinkURL = url
	h.sessions.Set(c.Sender().ID, StatePostLinkTitle, draft)
	return helpers.SendMD(c, "✏️ Введите название ссылки:", cancelMarkup())
}

func (h *Handlers) onPostLinkTitle(c tele.Context) error {
	title := strings.TrimSpace(c.Text())
	if title == "" {
		return helpers.SendMD(c, "Название не может быть пустым. Попробуйте ещё раз:", cancelMarkup())
	}
	draft, ok := draftOf[PostDraft](h, c)
	if !ok {
		return h.Sections(c)
	}
	draft.LinkTitle = title
	return h.finishPost(c, draft)
}

// finishPost persists the draft and shows the fresh post, which lands
// on the first page of its subsection. The session stays in its
// current state until the insert succeeds, so a transient storage
// error keeps the assembled draft and the last input can be resent.
func (h *Handlers) finishPost(c tele.Context, draft PostDraft) error {
	ctx := helpers.BuildContext(c)

	sender := c.Sender()
	name := strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	if sender.Username != "" {
		name = "@" + sender.Username
	}

	if _, err := h.store.CreatePost(ctx, storage.NewPost{
		SubsectionID: draft.SubsectionID,
		UserID:       sender.ID,
		UserName:     name,
		Title:        draft.Title,
		ContentType:  draft.ContentType,
		ContentText:  draft.Text,
		ImageFileID:  draft.ImageFileID,
		LinkURL:      draft.LinkURL,
		LinkTitle:    draft.LinkTitle,
	}); err != nil {
		// The parent is gone for good; anything else may clear up on
		// a retry of the same input.
		if errors.Is(err, storage.ErrNotFound) {
			h.sessions.Set(c.Sender().ID, stateIdle, nil)
		}
		return h.fail(c, err)
	}
	h.sessions.Set(c.Sender().ID, stateIdle, nil)

	view, err := h.views.PostPage(ctx, draft.SubsectionID, 0, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}

// PostDelete removes a post immediately; posts have no children to
// confirm over.
func (h *Handlers) PostDelete(c tele.Context) error {
	postID, subID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.Sections(c)
	}
	ctx := helpers.BuildContext(c)
	if err := h.store.DeletePost(ctx, postID); err != nil {
		return h.fail(c, err)
	}
	view, err := h.views.PostPage(ctx, subID, 0, h.editor(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, view)
}
