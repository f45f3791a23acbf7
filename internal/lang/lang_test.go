package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestCatalogFallsBackToEnglish(t *testing.T) {
	c := New("not a locale")
	assert.Equal(t, language.English, c.Language())
	assert.Equal(t, "Temporary chat", c.String(KeyTempChatName))
}

func TestCatalogChinese(t *testing.T) {
	c := New("zh-CN")
	assert.Equal(t, language.SimplifiedChinese, c.Language())
	assert.Equal(t, "临时会话", c.String(KeyTempChatName))
	assert.Equal(t, "研发（12）", c.Format(KeyGroupNameFormat, "研发", 12))
}

func TestCatalogFormat(t *testing.T) {
	assert.Equal(t, "Design (3)", Default().Format(KeyGroupNameFormat, "Design", 3))
}

func TestCatalogUnknownKey(t *testing.T) {
	assert.Equal(t, "chat.unknown", Default().String("chat.unknown"))
}

func TestPinyin(t *testing.T) {
	assert.Equal(t, "zhongguo", Pinyin("中国"))
	assert.Equal(t, "teamzhong", Pinyin("Team中"))
	assert.Equal(t, "", Pinyin(""))
}
