package core

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkt.systems/codecanvas/schema"
)

func sequentialIDs() func() schema.FileID {
	n := 0
	return func() schema.FileID {
		n++
		return schema.FileID(fmt.Sprintf("f%d", n))
	}
}

func fileNames(w *workspace) []schema.FileName {
	names := make([]schema.FileName, 0, len(w.files))
	for _, file := range w.files {
		names = append(names, file.Name)
	}
	return names
}

func TestWorkspaceAddActivatesAndTemplates(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	file, err := w.add("a.js")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if w.active != file.ID {
		t.Fatalf("expected new file active, got %q", w.active)
	}
	if file.Language != schema.LanguageJavaScript {
		t.Fatalf("expected javascript, got %q", file.Language)
	}
	if file.Content != "// New file: a.js\n" {
		t.Fatalf("unexpected template %q", file.Content)
	}
}

func TestWorkspaceAddRejectsBlankNames(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	seedWorkspace(w)
	before := w.Snapshot()
	for _, name := range []string{"", "   "} {
		if _, err := w.add(name); !errors.Is(err, schema.ErrEmptyName) {
			t.Fatalf("add(%q) error = %v, want ErrEmptyName", name, err)
		}
	}
	if diff := cmp.Diff(before, w.Snapshot()); diff != "" {
		t.Fatalf("workspace changed (-before +after):\n%s", diff)
	}
}

func TestWorkspaceAddRejectsDuplicate(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	if _, err := w.add("a.js"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := w.add("a.js"); !errors.Is(err, schema.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	count := 0
	for _, file := range w.files {
		if file.Name == "a.js" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one a.js, got %d", count)
	}
	if _, err := w.add("A.js"); err != nil {
		t.Fatalf("names are case-sensitive, add A.js: %v", err)
	}
}

func TestWorkspaceDeleteActivePicksFirstSurvivor(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	b, _ := w.add("b.js")
	c, _ := w.add("c.js")
	if err := w.selectFile(b.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := w.remove(b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.active != a.ID {
		t.Fatalf("expected first survivor %q active, got %q", a.ID, w.active)
	}
	if diff := cmp.Diff([]schema.FileName{"a.js", "c.js"}, fileNames(w)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if _, err := w.remove(a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.active != c.ID {
		t.Fatalf("expected %q active, got %q", c.ID, w.active)
	}
	if _, err := w.remove(c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.active != schema.NoFile {
		t.Fatalf("expected no active file, got %q", w.active)
	}
}

func TestWorkspaceDeleteInactiveKeepsActive(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	b, _ := w.add("b.js")
	if _, err := w.remove(a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.active != b.ID {
		t.Fatalf("expected %q to stay active, got %q", b.ID, w.active)
	}
}

func TestWorkspaceDeleteUnknown(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	if _, err := w.remove("missing"); !errors.Is(err, schema.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestWorkspaceRename(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	a.Content = "keep me"
	renamed, old, err := w.rename(a.ID, "notes.md")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if old != "a.js" {
		t.Fatalf("expected old name a.js, got %q", old)
	}
	if renamed.ID != a.ID || renamed.Content != "keep me" {
		t.Fatalf("rename changed id or content: %+v", renamed)
	}
	if renamed.Language != schema.LanguageMarkdown {
		t.Fatalf("expected language recomputed, got %q", renamed.Language)
	}
	if _, _, err := w.rename(a.ID, "notes.md"); err != nil {
		t.Fatalf("renaming to own name should succeed: %v", err)
	}
}

func TestWorkspaceRenameErrors(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	if _, err := w.add("b.js"); err != nil {
		t.Fatalf("add: %v", err)
	}
	cases := []struct {
		name    string
		id      schema.FileID
		newName string
		want    error
	}{
		{"blank", a.ID, "  ", schema.ErrEmptyName},
		{"duplicate", a.ID, "b.js", schema.ErrDuplicateName},
		{"missing", "missing", "c.js", schema.ErrFileNotFound},
	}
	for _, tc := range cases {
		if _, _, err := w.rename(tc.id, tc.newName); !errors.Is(err, tc.want) {
			t.Fatalf("%s: rename error = %v, want %v", tc.name, err, tc.want)
		}
	}
	if diff := cmp.Diff([]schema.FileName{"a.js", "b.js"}, fileNames(w)); diff != "" {
		t.Fatalf("names changed (-want +got):\n%s", diff)
	}
}

func TestWorkspaceSelect(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	if _, err := w.add("b.js"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.selectFile(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if w.activeFile() != a {
		t.Fatalf("expected a.js active")
	}
	if err := w.selectFile("missing"); !errors.Is(err, schema.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if w.active != a.ID {
		t.Fatalf("failed select changed active file")
	}
	if err := w.selectFile(schema.NoFile); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if w.activeFile() != nil {
		t.Fatalf("expected no active file")
	}
}

func TestWorkspaceUpdateContent(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	a, _ := w.add("a.js")
	if _, err := w.updateContent(a.ID, ""); err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.Content != "" {
		t.Fatalf("expected verbatim empty content, got %q", a.Content)
	}
	if _, err := w.updateContent("missing", "x"); !errors.Is(err, schema.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestWorkspaceSeed(t *testing.T) {
	w := newWorkspace(sequentialIDs())
	seedWorkspace(w)
	snap := w.Snapshot()
	if diff := cmp.Diff([]schema.FileName{"index.js", "styles.css", "README.md"}, fileNames(w)); diff != "" {
		t.Fatalf("unexpected seed files (-want +got):\n%s", diff)
	}
	active, ok := snap.Active()
	if !ok || active.Name != "index.js" {
		t.Fatalf("expected index.js active, got %+v", active)
	}
	if !active.Active || snap.Files[1].Active {
		t.Fatalf("unexpected active flags: %+v", snap.Files)
	}
}

func TestWorkspaceNamesStayUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"a.js", "b.js", "c.css", "d.md", "A.js"}
	w := newWorkspace(sequentialIDs())
	for i := 0; i < 500; i++ {
		name := names[rng.Intn(len(names))]
		switch rng.Intn(3) {
		case 0:
			_, _ = w.add(name)
		case 1:
			if len(w.files) > 0 {
				_, _, _ = w.rename(w.files[rng.Intn(len(w.files))].ID, name)
			}
		case 2:
			if len(w.files) > 0 {
				_, _ = w.remove(w.files[rng.Intn(len(w.files))].ID)
			}
		}
		seen := map[schema.FileName]bool{}
		for _, file := range w.files {
			if seen[file.Name] {
				t.Fatalf("step %d: duplicate name %q in %v", i, file.Name, fileNames(w))
			}
			seen[file.Name] = true
		}
		if w.active != schema.NoFile && w.index(w.active) < 0 {
			t.Fatalf("step %d: dangling active id %q", i, w.active)
		}
	}
}
