package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
)

func labelPrompt(ids []int) string {
	list, _ := json.Marshal(ids)

	return fmt.Sprintf(`Analyze this administrative form. You see red numbers (e.g., #1, #2...) on the input fields.
For each number, find the FULL NAME/LABEL of the field.

NAMING RULES:
1. CONTEXT IS KING: If the immediate text is generic (e.g., "YES", "NO", "Other", "Checkbox"), you MUST look visually higher or to the left to find the QUESTION or SECTION TITLE.
   - BAD: "Checkbox YES"
   - GOOD: "Business Registration - YES"

2. For checkboxes and radio buttons: Concatenate the row or section title with the chosen option.

List of IDs to identify: %s

Return ONLY a JSON object in this format, with one entry per ID:
{
    "ID": "Section Title - Option / Field Name"
}`, list)
}

func assistantPrompt(label, explanation string) string {
	var b strings.Builder

	b.WriteString("You are an expert in business formalities and administrative forms.\n")
	fmt.Fprintf(&b, "The user is trying to fill out: %q.\n", label)

	if explanation != "" && explanation != label {
		fmt.Fprintf(&b, "Field description: %q.\n", explanation)
	}

	b.WriteString("Instruction: Give a short, direct, and professional answer to help them fill this specific field.")

	return b.String()
}

func openingQuestionPrompt(emptyLabels []string) string {
	list, _ := json.Marshal(emptyLabels)

	return fmt.Sprintf(`You are an intelligent administrative assistant. Here is a list of fields to fill in a form:
%s

Goal: Fill this document by asking 3 or 4 open-ended questions to the user instead of asking field by field.

TASK: Generate ONLY the FIRST open-ended question (broadest possible) to start filling these fields.
Example: "Tell me about your project and your personal details."

Do not say hello, just ask the question.`, list)
}

type fieldRef struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

func extractionPrompt(refs []fieldRef, response, previousContext string) string {
	list, _ := json.Marshal(refs)
	quoted, _ := json.Marshal(response)

	var b strings.Builder

	b.WriteString("CONTEXT: The user is answering a question to fill out a form.\n")
	b.WriteString("LIST OF FIELDS TO FILL (ID: Label):\n")
	b.Write(list)
	b.WriteString("\n\n")

	if previousContext != "" {
		b.WriteString("PREVIOUS CONVERSATION:\n")
		b.WriteString(previousContext)
		b.WriteString("\n\n")
	}

	b.WriteString("USER RESPONSE:\n")
	b.Write(quoted)
	b.WriteString("\n\n")

	b.WriteString(`TASK 1: Extraction
Identify information in the response that matches the fields. Match on meaning, not on exact wording.
If the user says "My name is Thomas", and there is a "First Name" field, associate them.
Only use IDs from the list above.

TASK 2: Next Question
If important fields remain empty, formulate a short next question.
If everything seems covered by the current response or we have made good progress, return null for the question.

EXPECTED OUTPUT FORMAT (JSON):
{
    "extracted_data": { "FIELD_ID": "EXTRACTED_VALUE", "FIELD_ID_2": "VALUE" },
    "next_question": "The next question or null"
}`)

	return b.String()
}
