package core

import "pkt.systems/codecanvas/schema"

// fileRecord is a single in-memory file. Language is derived from Name and
// is only ever recomputed, never set independently.
type fileRecord struct {
	ID       schema.FileID
	Name     schema.FileName
	Language schema.Language
	Content  string
}

func newFileRecord(id schema.FileID, name schema.FileName, content string) *fileRecord {
	return &fileRecord{
		ID:       id,
		Name:     name,
		Language: schema.ClassifyLanguage(name),
		Content:  content,
	}
}

func (f *fileRecord) setName(name schema.FileName) {
	f.Name = name
	f.Language = schema.ClassifyLanguage(name)
}

// Snapshot returns a transport-friendly view of the file.
func (f *fileRecord) Snapshot(active bool) schema.FileSnapshot {
	return schema.FileSnapshot{
		ID:       f.ID,
		Name:     f.Name,
		Language: f.Language,
		Content:  f.Content,
		Active:   active,
	}
}
