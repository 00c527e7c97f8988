package schema

import "strings"

var extensionLanguages = map[string]Language{
	"js":   LanguageJavaScript,
	"ts":   LanguageTypeScript,
	"css":  LanguageCSS,
	"html": LanguageHTML,
	"json": LanguageJSON,
	"md":   LanguageMarkdown,
}

// ClassifyLanguage maps the extension after the last dot of name to a
// language label. It never fails; unknown or missing extensions yield
// LanguagePlaintext.
func ClassifyLanguage(name FileName) Language {
	raw := string(name)
	idx := strings.LastIndexByte(raw, '.')
	if idx < 0 {
		return LanguagePlaintext
	}
	if lang, ok := extensionLanguages[strings.ToLower(raw[idx+1:])]; ok {
		return lang
	}
	return LanguagePlaintext
}
