package oracle

import (
	"encoding/json"
	"fmt"
)

// extractPrompt is the shared instruction used by all LLM providers for
// reading receipts
const extractPrompt = `You are an expert receipt processor. Analyze this receipt image and extract all line items with their individual prices. Also, identify the subtotal, tax, and total amount. If a tip is explicitly mentioned, extract it. If not, calculate the tip by subtracting the subtotal and tax from the total.

Return ONLY valid JSON in this exact format:
{
  "items": [{"description": "Item name", "price": 0.00}],
  "subtotal": 0.00,
  "tax": 0.00,
  "tip": 0.00,
  "total": 0.00
}

Important:
- Every price must be a number (not a string), representing dollars and cents
- Item descriptions should be unique
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// interpretPrompt builds the instruction for updating assignments from a
// free-text command. The current items and assignments are serialized into
// the prompt so the model always sees the full state.
func interpretPrompt(items []ReceiptItem, current Assignments, command string) string {
	descriptions := make([]string, 0, len(items))
	for _, item := range items {
		descriptions = append(descriptions, item.Description)
	}

	// Marshaling string slices and maps of string slices cannot fail
	itemsJSON, _ := json.Marshal(descriptions)
	assignmentsJSON, _ := json.Marshal(current)

	return fmt.Sprintf(`You are a bill-splitting assistant. Your task is to update the assignment of people to receipt items based on a user's command.

Current state:
- Items on the receipt: %s
- Current assignments: %s

User command: %q

Instructions:
1. Analyze the command to update the assignments. People's names are case-insensitive; standardize them to start with a capital letter (e.g., "dhruv" becomes "Dhruv").
2. If an item in the command is a partial match for an item description, use the closest full match from the list.
3. A person can be added to or removed from an item's assignment list.
4. If a new person is mentioned, add them.
5. The final output must contain an entry for every single item on the receipt, even if no one is assigned to it (people: []).

Return ONLY the complete, updated JSON object representing the new assignments, in this exact format:
{
  "assignments": [{"item": "Item name", "people": ["Name"]}]
}

Do not add any text, explanation, or markdown.`, itemsJSON, assignmentsJSON, command)
}
