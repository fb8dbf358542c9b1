// Package nav composes browse views over the knowledge base: the
// section list, subsection lists and single-post pages. Views are
// plain data (text, optional photo, button rows) so handlers decide
// how to deliver them and tests inspect them directly.
package nav

import (
	"context"
	"fmt"
	"strings"

	"clanbase/bot/storage"
	"clanbase/core/telegram/format"
	"clanbase/core/telegram/keyboard"
)

// View is a renderable screen. When Photo is set the text becomes the
// photo caption.
type View struct {
	Text  string
	Photo string
	Rows  [][]keyboard.InlineBtn
}

// Engine builds views from stored content. It is stateless; all
// position information travels in callback payloads.
type Engine struct {
	store *storage.Store
}

// NewEngine returns an Engine backed by the given store.
func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// MainMenu is the bot entry screen. Editor actions are shown only to
// permitted users.
func (e *Engine) MainMenu(editor bool) *View {
	rows := [][]keyboard.InlineBtn{
		{{Text: "📚 Просмотреть разделы", Unique: ActionSections, Data: "menu"}},
	}
	if editor {
		rows = append(rows,
			[]keyboard.InlineBtn{{Text: "➕ Создать раздел", Unique: ActionSectionCreate, Data: "menu"}},
		)
	}
	return &View{
		Text: "🏰 Добро пожаловать в базу знаний клана!",
		Rows: rows,
	}
}

// SectionList renders every section with its subsection and post
// counts.
func (e *Engine) SectionList(ctx context.Context, editor bool) (*View, error) {
	sections, err := e.store.ListSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("section list: %w", err)
	}

	var rows [][]keyboard.InlineBtn
	for _, sec := range sections {
		counts, err := e.store.SectionCounts(ctx, sec.ID)
		if err != nil {
			return nil, fmt.Errorf("section %d counts: %w", sec.ID, err)
		}
		label := fmt.Sprintf("%s (%d подразд., %d записей)", sec.Name, counts.Subsections, counts.Posts)
		rows = append(rows, []keyboard.InlineBtn{{
			Text: label, Unique: ActionSection, Data: itoa(sec.ID),
		}})
	}

	text := "📚 Разделы базы знаний:"
	if len(sections) == 0 {
		text = "📚 Разделов пока нет."
	}
	if editor {
		rows = append(rows, []keyboard.InlineBtn{{Text: "➕ Создать раздел", Unique: ActionSectionCreate, Data: "list"}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "🏠 Главное меню", Unique: ActionMainMenu, Data: "back"}})

	return &View{Text: text, Rows: rows}, nil
}

// SubsectionList renders the children of one section. An empty section
// invites creating the first subsection.
func (e *Engine) SubsectionList(ctx context.Context, sectionID int64, editor bool) (*View, error) {
	sec, err := e.store.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	subs, err := e.store.ListSubsections(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("subsections of %d: %w", sectionID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", escape(sec.Name))
	if desc := format.DerefString(sec.Description, ""); desc != "" {
		fmt.Fprintf(&b, "_%s_\n", escape(desc))
	}

	var rows [][]keyboard.InlineBtn
	if len(subs) == 0 {
		b.WriteString("\nВ этом разделе пока нет подразделов. Создайте первый!")
	} else {
		b.WriteString("\nВыберите подраздел:")
		for _, sub := range subs {
			n, err := e.store.CountPosts(ctx, sub.ID)
			if err != nil {
				return nil, fmt.Errorf("subsection %d count: %w", sub.ID, err)
			}
			label := fmt.Sprintf("%s (%d)", sub.Name, n)
			rows = append(rows, []keyboard.InlineBtn{{
				Text: label, Unique: ActionPosts, Data: pageData(sub.ID, 0),
			}})
		}
	}

	if editor {
		rows = append(rows, []keyboard.InlineBtn{{Text: "➕ Создать подраздел", Unique: ActionSubsectionCreate, Data: itoa(sectionID)}})
		rows = append(rows, []keyboard.InlineBtn{
			{Text: "✏️ Переименовать", Unique: ActionSectionRename, Data: itoa(sectionID)},
			{Text: "🗑 Удалить раздел", Unique: ActionSectionDelete, Data: itoa(sectionID)},
		})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ К разделам", Unique: ActionSections, Data: "back"}})

	return &View{Text: b.String(), Rows: rows}, nil
}

// PostPage renders one post of a subsection, newest first. The index
// is validated against the live post count so stale or forged paging
// callbacks fail with not-found instead of panicking.
func (e *Engine) PostPage(ctx context.Context, subsectionID int64, index int, editor bool) (*View, error) {
	sub, err := e.store.GetSubsection(ctx, subsectionID)
	if err != nil {
		return nil, err
	}
	posts, err := e.store.ListPosts(ctx, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("posts of %d: %w", subsectionID, err)
	}

	if len(posts) == 0 {
		rows := [][]keyboard.InlineBtn{}
		if editor {
			rows = append(rows, []keyboard.InlineBtn{{Text: "📝 Добавить запись", Unique: ActionPostCreate, Data: itoa(subsectionID)}})
			rows = append(rows, []keyboard.InlineBtn{
				{Text: "✏️ Переименовать", Unique: ActionSubsectionRename, Data: itoa(subsectionID)},
				{Text: "🗑 Удалить подраздел", Unique: ActionSubsectionDelete, Data: itoa(subsectionID)},
			})
		}
		rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Назад", Unique: ActionSection, Data: itoa(sub.SectionID)}})
		return &View{
			Text: fmt.Sprintf("*%s*\n\nЗаписей пока нет.", escape(sub.Name)),
			Rows: rows,
		}, nil
	}

	if index < 0 || index >= len(posts) {
		return nil, fmt.Errorf("post %d/%d in subsection %d: %w", index, len(posts), subsectionID, storage.ErrNotFound)
	}
	post := posts[index]

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n\n", escape(post.Title))
	if post.ContentText != nil && *post.ContentText != "" {
		b.WriteString(escape(*post.ContentText))
		b.WriteString("\n\n")
	}
	if url := format.DerefString(post.LinkURL, ""); url != "" {
		title := format.DerefString(post.LinkTitle, "")
		if title == "" {
			title = url
		}
		fmt.Fprintf(&b, "🔗 [%s](%s)\n\n", escape(title), url)
	}
	if post.UserName != "" {
		fmt.Fprintf(&b, "👤 %s\n", escape(post.UserName))
	}
	fmt.Fprintf(&b, "🕒 %s", post.CreatedAt.Format("02.01.2006 15:04"))

	nav := []keyboard.InlineBtn{}
	if index > 0 {
		nav = append(nav, keyboard.InlineBtn{Text: "◀️", Unique: ActionPosts, Data: pageData(subsectionID, index-1)})
	}
	nav = append(nav, keyboard.InlineBtn{
		Text: fmt.Sprintf("%d/%d", index+1, len(posts)), Unique: ActionNoop, Data: "page",
	})
	if index < len(posts)-1 {
		nav = append(nav, keyboard.InlineBtn{Text: "▶️", Unique: ActionPosts, Data: pageData(subsectionID, index+1)})
	}

	rows := [][]keyboard.InlineBtn{nav}
	if editor {
		rows = append(rows, []keyboard.InlineBtn{{Text: "📝 Добавить запись", Unique: ActionPostCreate, Data: itoa(subsectionID)}})
		rows = append(rows, []keyboard.InlineBtn{{
			Text: "🗑 Удалить запись", Unique: ActionPostDelete,
			Data: fmt.Sprintf("%d|%d", post.ID, subsectionID),
		}})
	}
	rows = append(rows, []keyboard.InlineBtn{{Text: "⬅️ Назад", Unique: ActionSection, Data: itoa(sub.SectionID)}})

	view := &View{Text: b.String(), Rows: rows}
	if post.ImageFileID != nil && *post.ImageFileID != "" {
		view.Photo = *post.ImageFileID
	}
	return view, nil
}

func pageData(subsectionID int64, index int) string {
	return fmt.Sprintf("%d|%d", subsectionID, index)
}

func itoa(id int64) string {
	return fmt.Sprintf("%d", id)
}

func escape(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return out
}
