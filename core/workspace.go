package core

import (
	"fmt"

	"pkt.systems/codecanvas/schema"
)

// workspace is the ordered file collection of one session plus the active
// file. Files keep insertion order; names are unique (case-sensitive) and
// active is either NoFile or the id of a file in files.
type workspace struct {
	files  []*fileRecord
	active schema.FileID
	newID  func() schema.FileID
}

func newWorkspace(newID func() schema.FileID) *workspace {
	if newID == nil {
		newID = newFileID
	}
	return &workspace{newID: newID}
}

// newFileContent is the template for files created by add.
func newFileContent(name schema.FileName) string {
	return fmt.Sprintf("// New file: %s\n", name)
}

func (w *workspace) index(id schema.FileID) int {
	if id == schema.NoFile {
		return -1
	}
	for i, file := range w.files {
		if file.ID == id {
			return i
		}
	}
	return -1
}

func (w *workspace) lookup(id schema.FileID) (*fileRecord, error) {
	idx := w.index(id)
	if idx < 0 {
		return nil, schema.ErrFileNotFound
	}
	return w.files[idx], nil
}

func (w *workspace) nameTaken(name schema.FileName, except schema.FileID) bool {
	for _, file := range w.files {
		if file.Name == name && file.ID != except {
			return true
		}
	}
	return false
}

// seed appends a file without the new-file template or activation.
func (w *workspace) seed(name schema.FileName, content string) *fileRecord {
	file := newFileRecord(w.newID(), name, content)
	w.files = append(w.files, file)
	return file
}

func (w *workspace) add(name string) (*fileRecord, error) {
	normalized, err := schema.NormalizeFileName(name)
	if err != nil {
		return nil, err
	}
	if w.nameTaken(normalized, schema.NoFile) {
		return nil, schema.ErrDuplicateName
	}
	file := newFileRecord(w.newID(), normalized, newFileContent(normalized))
	w.files = append(w.files, file)
	w.active = file.ID
	return file, nil
}

func (w *workspace) remove(id schema.FileID) (*fileRecord, error) {
	idx := w.index(id)
	if idx < 0 {
		return nil, schema.ErrFileNotFound
	}
	removed := w.files[idx]
	remaining := make([]*fileRecord, 0, len(w.files)-1)
	remaining = append(remaining, w.files[:idx]...)
	remaining = append(remaining, w.files[idx+1:]...)
	w.files = remaining
	if w.active == id {
		w.active = schema.NoFile
		if len(w.files) > 0 {
			w.active = w.files[0].ID
		}
	}
	return removed, nil
}

func (w *workspace) rename(id schema.FileID, name string) (*fileRecord, schema.FileName, error) {
	normalized, err := schema.NormalizeFileName(name)
	if err != nil {
		return nil, "", err
	}
	if w.nameTaken(normalized, id) {
		return nil, "", schema.ErrDuplicateName
	}
	file, err := w.lookup(id)
	if err != nil {
		return nil, "", err
	}
	old := file.Name
	file.setName(normalized)
	return file, old, nil
}

func (w *workspace) selectFile(id schema.FileID) error {
	if id == schema.NoFile {
		w.active = schema.NoFile
		return nil
	}
	if w.index(id) < 0 {
		return schema.ErrFileNotFound
	}
	w.active = id
	return nil
}

func (w *workspace) updateContent(id schema.FileID, content string) (*fileRecord, error) {
	file, err := w.lookup(id)
	if err != nil {
		return nil, err
	}
	file.Content = content
	return file, nil
}

func (w *workspace) activeFile() *fileRecord {
	file, err := w.lookup(w.active)
	if err != nil {
		return nil
	}
	return file
}

// Snapshot returns a copy of the workspace state.
func (w *workspace) Snapshot() schema.WorkspaceSnapshot {
	files := make([]schema.FileSnapshot, 0, len(w.files))
	for _, file := range w.files {
		files = append(files, file.Snapshot(file.ID == w.active))
	}
	return schema.WorkspaceSnapshot{Files: files, ActiveFile: w.active}
}

func (w *workspace) submittedFiles() []schema.SubmittedFile {
	out := make([]schema.SubmittedFile, 0, len(w.files))
	for _, file := range w.files {
		out = append(out, schema.SubmittedFile{Name: file.Name, Content: file.Content})
	}
	return out
}
