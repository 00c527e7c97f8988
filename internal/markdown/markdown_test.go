package markdown

import (
	"strings"
	"testing"

	"pkt.systems/codecanvas/schema"
)

func TestRenderHeadingAndList(t *testing.T) {
	out, err := Render("# Code Canvas\n\n- File Explorer\n- Code Editing\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"<h1>Code Canvas</h1>", "<li>File Explorer</li>", "<ul>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestRenderGFMTable(t *testing.T) {
	out, err := Render("| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<table>") {
		t.Fatalf("expected table, got %q", out)
	}
}

func TestRenderOmitsRawHTML(t *testing.T) {
	out, err := Render("<script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected raw html to be dropped, got %q", out)
	}
}

func TestRenderFileWrapsCode(t *testing.T) {
	out, err := RenderFile(schema.FileSnapshot{
		Name:     "a.js",
		Language: schema.LanguageJavaScript,
		Content:  "const s = `x`;",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "<pre") {
		t.Fatalf("expected code block, got %q", out)
	}
	if strings.Contains(out, "<h1") {
		t.Fatalf("expected code not to be parsed as markdown, got %q", out)
	}
}

func TestFencedOutgrowsBackticks(t *testing.T) {
	got := fenced("a ```` b", schema.LanguagePlaintext)
	if !strings.HasPrefix(got, "`````\n") || !strings.HasSuffix(got, "`````\n") {
		t.Fatalf("unexpected fence: %q", got)
	}
}
