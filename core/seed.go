package core

import "pkt.systems/codecanvas/schema"

type seedFile struct {
	name    schema.FileName
	content string
}

var seedFiles = []seedFile{
	{
		name: "index.js",
		content: `// Welcome to Code Canvas!
// You can add, rename, and delete files.

function greet(name) {
  console.log(` + "`Hello, ${name}!`" + `);
}

greet('World');
`,
	},
	{
		name: "styles.css",
		content: `/* Feel free to style your components */

body {
  font-family: 'Inter', sans-serif;
}
`,
	},
	{
		name: "README.md",
		content: `# Code Canvas

This is an interactive code editor with an in-memory workspace.

## Features
- File Explorer
- Code Editing
- File CRUD Operations
`,
	},
}

// seedWorkspace fills w with the starter files and activates the first.
func seedWorkspace(w *workspace) {
	for i, seed := range seedFiles {
		file := w.seed(seed.name, seed.content)
		if i == 0 {
			w.active = file.ID
		}
	}
}
