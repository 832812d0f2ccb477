package host

// Option names read through OptionProvider.
const (
	OptionBlogName              = "blogname"
	OptionBlogDescription       = "blogdescription"
	OptionLocale                = "locale"
	OptionLocales               = "locales"
	OptionBlogID                = "blog_id"
	OptionTheme                 = "theme"
	OptionThemeSupportsTitleTag = "theme_supports_title_tag"
	OptionPermalinkStructure    = "permalink_structure"
	OptionShowOnFront           = "show_on_front"
	OptionPageOnFront           = "page_on_front"
	OptionPageForPosts          = "page_for_posts"

	OptionTitleSeparator       = "title_separator"
	OptionTitleLocation        = "title_location"
	OptionTitleAppendSiteName  = "title_append_sitename"
	OptionTitleRemovePrefixes  = "title_rem_prefixes"
	OptionHomeTitle            = "homepage_title"
	OptionHomeTagline          = "homepage_title_tagline"
	OptionHomeTaglineEnabled   = "homepage_tagline"
	OptionHomeTitleLocation    = "home_title_location"
	OptionHomeDescription      = "homepage_description"
	OptionAutoDescription      = "auto_description"
	OptionDescriptionAdditions = "description_additions"
	OptionDescriptionSeparator = "description_separator"
	OptionCacheEnabled         = "cache_enabled"
)

// Custom field and meta keys holding human-authored overrides.
const (
	FieldTitle       = "_seo_title"
	FieldDescription = "_seo_description"

	TermMetaTitle       = "doctitle"
	TermMetaDescription = "description"
	// TermMetaSavedFlag marks term meta written by this plugin's own editor.
	TermMetaSavedFlag = "saved_flag"

	AuthorMetaTitle       = "seo_title"
	AuthorMetaDescription = "seo_description"
	AuthorMetaBio         = "description"
)

// DefaultOptions lists the documented defaults applied beneath user options.
func DefaultOptions() map[string]any {
	return map[string]any{
		OptionBlogName:              "",
		OptionBlogDescription:       "",
		OptionLocale:                "en_US",
		OptionBlogID:                1,
		OptionThemeSupportsTitleTag: true,
		OptionShowOnFront:           "posts",
		OptionPageOnFront:           0,
		OptionPageForPosts:          0,
		OptionTitleSeparator:        "pipe",
		OptionTitleLocation:         "right",
		OptionTitleAppendSiteName:   true,
		OptionTitleRemovePrefixes:   false,
		OptionHomeTaglineEnabled:    true,
		OptionHomeTitleLocation:     "right",
		OptionAutoDescription:       true,
		OptionDescriptionAdditions:  true,
		OptionDescriptionSeparator:  "pipe",
		OptionCacheEnabled:          true,
	}
}

// Separator maps a separator option name to its character. Unknown names are
// returned verbatim so a literal character can be configured directly.
func Separator(name string) string {
	switch name {
	case "pipe", "":
		return "|"
	case "dash":
		return "-"
	case "ndash":
		return "–"
	case "mdash":
		return "—"
	case "bull":
		return "•"
	case "middot":
		return "·"
	case "lt":
		return "<"
	case "gt":
		return ">"
	case "tilde":
		return "~"
	default:
		return name
	}
}
