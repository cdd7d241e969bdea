package oracle

// ReceiptItem is a single line item from a receipt
type ReceiptItem struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// ReceiptData contains the structured contents of a receipt.
// Item descriptions are guaranteed unique so they can be used as map keys.
type ReceiptData struct {
	Items    []ReceiptItem `json:"items"`
	Subtotal float64       `json:"subtotal"`
	Tax      float64       `json:"tax"`
	Tip      float64       `json:"tip"`
	Total    float64       `json:"total"`
}

// Assignments maps an item description to the people assigned to it
type Assignments map[string][]string

// Oracle defines the interface for the generative-AI backed operations
type Oracle interface {
	// ExtractReceipt analyzes a receipt image/PDF and extracts line items and totals
	ExtractReceipt(imageData []byte, contentType string) (*ReceiptData, error)
	// InterpretCommand applies a free-text instruction to the current
	// assignments and returns a complete replacement covering every item
	InterpretCommand(items []ReceiptItem, current Assignments, command string) (Assignments, error)
	// Close closes the oracle and releases resources
	Close() error
}

// EmptyAssignments returns an assignment map with an empty people list
// for every item on the receipt
func EmptyAssignments(items []ReceiptItem) Assignments {
	assignments := make(Assignments, len(items))
	for _, item := range items {
		assignments[item.Description] = []string{}
	}
	return assignments
}
