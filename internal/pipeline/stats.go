package pipeline

// Stats summarizes one pipeline run for operators.
type Stats struct {
	Candidates    int   `json:"candidates"`
	ReadFailures  int64 `json:"read_failures"`
	ParseFailures int64 `json:"parse_failures"`
	Parsed        int   `json:"parsed"`
	Collections   int   `json:"collections"`
}
