package validation

// Severity grades a validation finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Check names, stable identifiers for report consumers
const (
	CheckDuplicateID    = "duplicate_node_id"
	CheckDanglingRef    = "dangling_edge_reference"
	CheckDisconnected   = "disconnected_components"
	CheckInvalidLength  = "non_positive_length"
	CheckOutOfBounds    = "coordinates_out_of_bounds"
	CheckLengthMismatch = "length_geometry_mismatch"
)

// Issue is one structured validation finding. Findings are always
// informational: the validator never mutates the data it checks.
type Issue struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Subjects []string `json:"subjects"`
	Message  string   `json:"message"`
}

// Report aggregates the findings of one validation pass
type Report struct {
	Issues         []Issue `json:"issues"`
	TotalElements  int     `json:"totalElements"`
	ValidElements  int     `json:"validElements"`
	ValidationRate float64 `json:"validationRate"`
}

// Errors returns only the error-severity issues
func (r *Report) Errors() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// ByCheck returns the issues produced by one named check
func (r *Report) ByCheck(check string) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Check == check {
			out = append(out, issue)
		}
	}
	return out
}
