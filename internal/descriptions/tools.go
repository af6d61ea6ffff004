package descriptions

import "sort"

// Tool descriptions shown to MCP clients

const (
	ListFormsDescription = `List the PDF forms available in the configured directory.

**When to use:** Before analyze_form, to find the path of the form the user means.

**Examples:**
• "Which forms do I have?"
• query "cerfa" to find "cerfa-11768.pdf"

**Notes:** Matching is fuzzy on file names: every word of the query must appear in the name. Files larger than the size limit are not listed.`

	AnalyzeFormDescription = `Map the fillable fields on the first page of a PDF form and name each one.

**When to use:** Starting work on a form. Every other tool works with the fields this returns.

**What it returns:** A JSON array of fields. Each field has an id, a display number (simple_id, 1..N in page order), a label read from the page by a vision model, its box as percentages of the page (top, left, width, height) and its current value, if any.

**Examples:**
• "Analyze cerfa-11768.pdf and tell me which fields are empty"
• "Map the fields of forms/registration.pdf"

**Notes:** Paths are resolved inside the configured directory. When labelling fails the fields keep placeholder labels ("Field 3"). Only the first page is analyzed.`

	AskAssistantDescription = `Get a short, direct answer about how to fill one form field.

**When to use:** The user is stuck on a specific field and asks what it means or what to enter.

**Examples:**
• query "What is a SIRET?", label "Company identification number"
• query "Which date goes here?", label "Start of activity"

**Notes:** Single turn, nothing is remembered between calls.`

	StartInterviewDescription = `Generate the opening question of a guided interview that fills the form from free-form answers.

**When to use:** After analyze_form, to fill many fields at once by asking a few broad questions instead of one per field.

**Parameters:** fields is the JSON array returned by analyze_form, with any values filled so far. Only fields without a value are considered.

**Workflow:** analyze_form → start_interview → ask the user → process_interview_answer → repeat until next_question is null.`

	ProcessInterviewAnswerDescription = `Extract field values from the user's answer and get the next question.

**When to use:** Each time the user answers an interview question.

**What it returns:** JSON with extracted_data (display number → value, only for fields the answer covers) and next_question (null when the interview is complete).

**Parameters:** user_response is the user's answer verbatim, fields the current field list, previous_context optional earlier questions and answers.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"list_forms":               ListFormsDescription,
	"analyze_form":             AnalyzeFormDescription,
	"ask_assistant":            AskAssistantDescription,
	"start_interview":          StartInterviewDescription,
	"process_interview_answer": ProcessInterviewAnswerDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in alphabetical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
