package schema

// PromptPrefix is prepended to echoed command lines.
const PromptPrefix = "> "

// NotFoundPrefix is prepended to unknown command lines.
const NotFoundPrefix = "Command not found: "

// EchoLine renders an echoed command line.
func EchoLine(input string) string {
	return PromptPrefix + input
}
