package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/yourorg/clearsign/pkg/types"
)

const promptPreamble = "You are an AI assistant that helps developers by generating detailed documentation for Ethereum smart contracts.\n\n"

const promptSections = " that includes the following sections:\n" +
	"1. **Contract Overview**: A brief description of the smart contract based on its functions.\n" +
	"2. **Function Descriptions**: Detailed descriptions of each function provided below, including parameters, expected behavior, and any return values.\n" +
	"3. **Usage Examples**: Code snippets in Solidity and JavaScript demonstrating how to interact with the contract.\n" +
	"4. **Security Considerations**: Any potential security risks or best practices.\n\n" +
	"Here are the functions with their details for reference:\n\n" +
	"**Functions**:\n"

const promptClosing = "Please use the ABI and function details provided to generate the documentation. If any information is missing or unclear, please make reasonable assumptions and proceed. **Do not mention any lack of information in your response.**\n"

// BuildPrompt renders the instruction document sent to the completion
// provider. The output depends only on its arguments.
func BuildPrompt(functions []types.FunctionSummary, contractAddress string, description json.RawMessage) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("Please provide a comprehensive Markdown document for the smart contract at address ")
	b.WriteString(contractAddress)
	b.WriteString(promptSections)

	for _, fn := range functions {
		b.WriteString("- Function Name: `" + fn.Name + "`\n")
		b.WriteString("  - Parameters:\n")
		if len(fn.Parameters) == 0 {
			b.WriteString("    - None\n")
		}
		for _, p := range fn.Parameters {
			b.WriteString("    - `" + p.Type + " " + p.Name + "`\n")
		}
		b.WriteString("  - Returns:\n")
		if len(fn.ReturnTypes) == 0 {
			b.WriteString("    - None\n")
		}
		for _, typ := range fn.ReturnTypes {
			b.WriteString("    - `" + typ + "`\n")
		}
	}

	pretty, err := PrettyJSON(description)
	if err != nil {
		pretty = ""
	}
	b.WriteString("\nHere is the ABI of the contract for reference:\n\n")
	b.WriteString("```json\n")
	b.WriteString(pretty)
	b.WriteString("\n```\n\n")
	b.WriteString(promptClosing)
	return b.String()
}

// PrettyJSON re-indents raw with two spaces and sorted object keys. Numbers
// are kept verbatim and neither HTML characters nor U+2028/U+2029 are
// escaped.
func PrettyJSON(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("trailing data after JSON value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return unescapeLineSeparators(strings.TrimSuffix(buf.String(), "\n")), nil
}

// unescapeLineSeparators turns the encoder's \u2028 and \u2029 escapes back
// into raw runes. Escaped backslashes are copied as pairs so a literal
// "\\u2028" in the data is left alone.
func unescapeLineSeparators(s string) string {
	if !strings.Contains(s, `\u202`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], `\u2028`):
			b.WriteRune('\u2028')
			i += 5
		case strings.HasPrefix(s[i:], `\u2029`):
			b.WriteRune('\u2029')
			i += 5
		default:
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
			i++
		}
	}
	return b.String()
}
