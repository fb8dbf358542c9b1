package handlers

import (
	tele "gopkg.in/telebot.v4"

	"clanbase/bot/storage"
	"clanbase/core/telegram/state"
)

const stateIdle = state.StateIdle

// draftOf fetches the sender's typed draft from the session manager.
func draftOf[T any](h *Handlers, c tele.Context) (T, bool) {
	return state.DraftOf[T](h.sessions, c.Sender().ID)
}

// Conversation states. Each one names the input expected next.
const (
	StateSectionName      state.State = "section_name"
	StateSectionRename    state.State = "section_rename"
	StateSubsectionName   state.State = "subsection_name"
	StateSubsectionRename state.State = "subsection_rename"
	StatePostTitle        state.State = "post_title"
	StatePostText         state.State = "post_text"
	StatePostImage        state.State = "post_image"
	StatePostLinkURL      state.State = "post_link_url"
	StatePostLinkTitle    state.State = "post_link_title"
)

// SectionDraft targets a section rename; SectionID is zero while
// creating.
type SectionDraft struct {
	SectionID int64
}

// SubsectionDraft carries the parent section during creation and the
// rename target otherwise.
type SubsectionDraft struct {
	SectionID    int64
	SubsectionID int64
}

// PostDraft accumulates a post across conversation steps. ContentType
// is fixed once chosen and decides which steps remain.
type PostDraft struct {
	SubsectionID int64
	Title        string
	ContentType  storage.ContentType
	Text         string
	ImageFileID  string
	LinkURL      string
	LinkTitle    string
}

// firstInputState returns the first input step after the content type
// is chosen.
func firstInputState(t storage.ContentType) state.State {
	switch t {
	case storage.ContentText:
		return StatePostText
	case storage.ContentImage, storage.ContentMixed:
		return StatePostImage
	case storage.ContentLink:
		return StatePostLinkURL
	}
	return state.StateIdle
}

// afterImageState returns the step following a received image, and
// whether the draft is complete. A mixed post still needs its link.
func afterImageState(t storage.ContentType) (state.State, bool) {
	if t == storage.ContentMixed {
		return StatePostLinkURL, false
	}
	return state.StateIdle, true
}
