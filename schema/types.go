package schema

// SessionID identifies a playground session (one workspace + terminal).
type SessionID string

// FileID identifies a file record. It is assigned at creation and never reused.
type FileID string

// FileName is the user-facing name of a file record.
type FileName string

// Language is the display/syntax-mode label derived from a file name.
type Language string

// NoFile is the "none" sentinel for the active file.
const NoFile FileID = ""

const (
	// LanguageJavaScript labels .js files; the only runnable language.
	LanguageJavaScript Language = "javascript"
	// LanguageTypeScript labels .ts files.
	LanguageTypeScript Language = "typescript"
	// LanguageCSS labels .css files.
	LanguageCSS Language = "css"
	// LanguageHTML labels .html files.
	LanguageHTML Language = "html"
	// LanguageJSON labels .json files.
	LanguageJSON Language = "json"
	// LanguageMarkdown labels .md files.
	LanguageMarkdown Language = "markdown"
	// LanguagePlaintext labels everything else.
	LanguagePlaintext Language = "plaintext"
)

// Runnable reports whether files of this language can be executed.
func (l Language) Runnable() bool {
	return l == LanguageJavaScript
}
