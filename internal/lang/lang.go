// Package lang resolves user-visible strings for conversation display names and
// derives phonetic sort keys for names written in Han characters.
package lang

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Keys used by the conversation display name derivation.
const (
	KeyTempChatName    = "chat.tempChat.name"
	KeySystemGroupName = "chat.systemGroup.name"
	KeyGroupName       = "chat.group.name"
	KeyGroupNameFormat = "chat.groupName.format"
	KeyAll             = "chat.all"
)

// supported lists catalog languages; the first entry is the fallback.
var supported = []language.Tag{language.English, language.SimplifiedChinese}

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyTempChatName:    "Temporary chat",
		KeySystemGroupName: "All members",
		KeyGroupName:       "Group",
		KeyGroupNameFormat: "%s (%v)",
		KeyAll:             "all",
	},
	language.SimplifiedChinese: {
		KeyTempChatName:    "临时会话",
		KeySystemGroupName: "全体成员",
		KeyGroupName:       "讨论组",
		KeyGroupNameFormat: "%s（%v）",
		KeyAll:             "全部",
	},
}

// Catalog is a localizer bound to a single language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New builds a Catalog for the given BCP 47 locale. Unknown or unsupported locales
// fall back to English.
func New(locale string) *Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, tag := range supported {
		for key, msg := range messages[tag] {
			// SetString only fails on malformed messages, which the table above does not contain.
			_ = builder.SetString(tag, key, msg)
		}
	}

	tag := language.English
	if parsed, err := language.Parse(locale); err == nil {
		_, index, _ := language.NewMatcher(supported).Match(parsed)
		tag = supported[index]
	}

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the English catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New("en")
	})
	return defaultCatalog
}

// Language reports the tag this catalog resolves strings for.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// String returns the localized string for key, or key itself when unknown.
func (c *Catalog) String(key string) string {
	return c.printer.Sprintf(key)
}

// Format formats the localized pattern for key with args.
func (c *Catalog) Format(key string, args ...any) string {
	return c.printer.Sprintf(key, args...)
}
