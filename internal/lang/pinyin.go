package lang

import (
	"strings"

	"github.com/mozillazg/go-pinyin"
)

var pinyinArgs = func() pinyin.Args {
	args := pinyin.NewArgs()
	args.Fallback = func(r rune, _ pinyin.Args) []string {
		return []string{string(r)}
	}
	return args
}()

// Pinyin converts s to a lowercase phonetic key. Han characters become their
// toneless pinyin syllables; every other rune is kept as is.
func Pinyin(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(strings.Join(pinyin.LazyPinyin(s, pinyinArgs), ""))
}
