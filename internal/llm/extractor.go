// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "JobPostings")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields of one item
	List        bool          // Output is {"<Name>": [item, ...]} instead of a single item
	ListKey     string        // Key holding the list when List is set
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "number"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n")
	indent := "  "
	if schema.List {
		sb.WriteString(fmt.Sprintf("{\n  \"%s\": [\n    {\n", schema.ListKey))
		indent = "      "
	} else {
		sb.WriteString("{\n")
	}
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("%s\"%s\": %s%s", indent, field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	if schema.List {
		sb.WriteString("    }\n  ]\n}\n\n")
	} else {
		sb.WriteString("}\n\n")
	}

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the text, do not invent values.\n")
	sb.WriteString("- Omit optional fields that are not present in the text.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("<content>\n")
	sb.WriteString(inputText)
	sb.WriteString("\n</content>\n")

	return sb.String()
}

// JobPostingsSchema returns the extraction schema for a marketplace listing page.
// The description is the preamble of the caller's scraper prompt.
func JobPostingsSchema(description string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "JobPostings",
		Description: description,
		List:        true,
		ListKey:     "jobs",
		Fields: []SchemaField{
			{Name: "title", Type: "\"string\"", Description: "The title of the job", Required: true},
			{Name: "description", Type: "\"string\"", Description: "The full description of the job", Required: true},
			{Name: "job_type", Type: "\"Fixed\" | \"Hourly\"", Description: "The type of the job"},
			{Name: "experience_level", Type: "\"string\"", Description: "The experience level of the job"},
			{Name: "duration", Type: "\"string\"", Description: "The estimated duration of the job"},
			{Name: "budget", Type: "\"string\"", Description: "Payment rate including the '$' symbol, e.g. '$15.00-$25.00' or '$500'"},
			{Name: "client_rating", Type: "number", Description: "The client's rating"},
			{Name: "skills_required", Type: "[\"string\"]", Description: "List of skills required for the job", Required: true},
			{Name: "job_url", Type: "\"string\"", Description: "The URL link to the job", Required: true},
		},
	}
}
