package nav

// Callback action names shared between view composition and handler
// registration. A button built here must have a handler registered
// under the same unique.
const (
	ActionMainMenu = "nav_menu"
	ActionSections = "nav_sections"
	ActionSection  = "nav_section" // payload: sectionID
	ActionPosts    = "nav_posts"   // payload: subsectionID|index

	ActionSectionCreate    = "sec_create"
	ActionSectionRename    = "sec_rename"     // payload: sectionID
	ActionSectionDelete    = "sec_delete"     // payload: sectionID
	ActionSectionDeleteYes = "sec_delete_yes" // payload: sectionID
	ActionSubsectionCreate = "sub_create"     // payload: sectionID
	ActionSubsectionRename = "sub_rename"     // payload: subsectionID
	ActionSubsectionDelete = "sub_delete"     // payload: subsectionID
	ActionSubsectionDelYes = "sub_delete_yes" // payload: subsectionID
	ActionPostCreate       = "post_create"    // payload: subsectionID
	ActionPostContentType  = "post_type"      // payload: text|image|link|mixed
	ActionPostDelete       = "post_delete"    // payload: postID|subsectionID
	ActionConversationStop = "conv_cancel"
	ActionNoop             = "nav_blank" // page position indicator
)
