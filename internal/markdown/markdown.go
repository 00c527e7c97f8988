package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"pkt.systems/codecanvas/schema"
)

var converter = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		highlighting.NewHighlighting(highlighting.WithStyle("github")),
	),
)

// Render converts GitHub flavoured markdown to HTML. Raw HTML in the
// source is omitted.
func Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderFile renders a preview of a workspace file. Markdown files are
// rendered as documents; everything else becomes a highlighted code block.
func RenderFile(file schema.FileSnapshot) (string, error) {
	if file.Language == schema.LanguageMarkdown {
		return Render(file.Content)
	}
	return Render(fenced(file.Content, file.Language))
}

func fenced(content string, lang schema.Language) string {
	fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
	info := string(lang)
	if lang == schema.LanguagePlaintext {
		info = ""
	}
	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(info)
	b.WriteByte('\n')
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)
	b.WriteByte('\n')
	return b.String()
}

func longestRun(s string, ch byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != ch {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}
