package types

// GeneratedDocument is the sole successful output of a generation request.
type GeneratedDocument struct {
	Markdown string `json:"markdown"`
}

// FunctionSummary is the normalized view of one callable ABI function.
type FunctionSummary struct {
	Name        string      `json:"name"`
	Parameters  []Parameter `json:"parameters"`
	ReturnTypes []string    `json:"return_types"`
}

// Parameter is one function input, rendered as "type name".
type Parameter struct {
	Type string `json:"type"`
	Name string `json:"name"`
}
