package oracle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON trims a model response down to the JSON object it contains.
// Models occasionally wrap output in markdown fences or add stray text
// despite being told not to.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Remove opening markdown code blocks
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[startIdx : endIdx+1], nil
}

// parseReceiptJSON parses the model's receipt response and enforces the
// unique-description invariant so descriptions can serve as map keys
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if len(data.Items) == 0 {
		return nil, fmt.Errorf("no items found on receipt")
	}

	data.Items = dedupeItems(data.Items)

	return &data, nil
}

// dedupeItems makes every item description unique, in first-seen order,
// by suffixing repeats with " (2)", " (3)", and so on. Prices are kept.
func dedupeItems(items []ReceiptItem) []ReceiptItem {
	seen := make(map[string]bool, len(items))
	out := make([]ReceiptItem, 0, len(items))
	for _, item := range items {
		desc := strings.TrimSpace(item.Description)
		if desc == "" {
			desc = "Item"
		}
		counter := 2
		unique := desc
		for seen[unique] {
			unique = fmt.Sprintf("%s (%d)", desc, counter)
			counter++
		}
		seen[unique] = true
		out = append(out, ReceiptItem{Description: unique, Price: item.Price})
	}
	return out
}

// assignmentsResponse is the wire format of the interpretation call
type assignmentsResponse struct {
	Assignments []itemAssignment `json:"assignments"`
}

type itemAssignment struct {
	Item   string   `json:"item"`
	People []string `json:"people"`
}

// parseAssignmentsJSON parses the model's interpretation response and
// reconciles it against the current receipt items
func parseAssignmentsJSON(text string, items []ReceiptItem) (Assignments, error) {
	text, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var resp assignmentsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return reconcileAssignments(items, resp), nil
}

// reconcileAssignments builds a fresh assignment map covering exactly the
// current receipt items. Items the response omits get an empty people
// list. Response entries that do not case-insensitively match a current
// item description are dropped. The prior map is never consulted: the
// response is a full replacement.
func reconcileAssignments(items []ReceiptItem, resp assignmentsResponse) Assignments {
	assignments := EmptyAssignments(items)

	// Match response entries to canonical descriptions in case the model
	// slightly altered casing
	canonical := make(map[string]string, len(items))
	for _, item := range items {
		canonical[strings.ToLower(item.Description)] = item.Description
	}

	for _, entry := range resp.Assignments {
		desc, ok := canonical[strings.ToLower(entry.Item)]
		if !ok {
			continue
		}
		people := entry.People
		if people == nil {
			people = []string{}
		}
		assignments[desc] = people
	}

	return assignments
}
