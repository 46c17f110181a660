// Package xero talks to the Xero accounting API and models its report and
// invoice payloads.
package xero

// Row types used by the Reports endpoints.
const (
	RowTypeHeader  = "Header"
	RowTypeSection = "Section"
	RowTypeRow     = "Row"
	RowTypeSummary = "SummaryRow"
)

// ReportsResponse is the envelope returned by every /Reports endpoint.
type ReportsResponse struct {
	Reports []Report `json:"Reports"`
}

// Report is a nested row/column financial statement.
type Report struct {
	ReportID     string      `json:"ReportID,omitempty"`
	ReportName   string      `json:"ReportName,omitempty"`
	ReportType   string      `json:"ReportType,omitempty"`
	ReportTitles []string    `json:"ReportTitles,omitempty"`
	ReportDate   string      `json:"ReportDate,omitempty"`
	Rows         []ReportRow `json:"Rows"`
}

// ReportRow is either a header, a section holding child rows, a line item or
// a section summary.
type ReportRow struct {
	RowType string      `json:"RowType"`
	Title   string      `json:"Title,omitempty"`
	Cells   []Cell      `json:"Cells,omitempty"`
	Rows    []ReportRow `json:"Rows,omitempty"`
}

// Cell holds one raw value. Numeric cells are still strings on the wire.
type Cell struct {
	Value      string          `json:"Value"`
	Attributes []CellAttribute `json:"Attributes,omitempty"`
}

// CellAttribute links a cell back to the account it was computed from.
type CellAttribute struct {
	ID    string `json:"Id"`
	Value string `json:"Value"`
}

// Header returns the first header row of the report.
func (r *Report) Header() (ReportRow, bool) {
	if r == nil {
		return ReportRow{}, false
	}
	for _, row := range r.Rows {
		if row.RowType == RowTypeHeader {
			return row, true
		}
	}
	return ReportRow{}, false
}

// Label returns the value of the first cell, or "" for an empty row.
func (row ReportRow) Label() string {
	if len(row.Cells) == 0 {
		return ""
	}
	return row.Cells[0].Value
}

// Values returns the raw cell values after the label cell.
func (row ReportRow) Values() []string {
	if len(row.Cells) <= 1 {
		return []string{}
	}
	out := make([]string, 0, len(row.Cells)-1)
	for _, cell := range row.Cells[1:] {
		out = append(out, cell.Value)
	}
	return out
}
