package query

// Request is a search request body in the Elasticsearch query DSL.
type Request struct {
	From  int          `json:"from"`
	Size  int          `json:"size"`
	Query Query        `json:"query"`
	Sort  []SortClause `json:"sort"`
}

// Query holds exactly one of its members.
type Query struct {
	MatchAll *MatchAll  `json:"match_all,omitempty"`
	Bool     *BoolQuery `json:"bool,omitempty"`
}

type MatchAll struct{}

type BoolQuery struct {
	Should             []Clause `json:"should,omitempty"`
	MinimumShouldMatch *int     `json:"minimum_should_match,omitempty"`
}

// Clause holds exactly one of its members.
type Clause struct {
	MultiMatch *MultiMatch         `json:"multi_match,omitempty"`
	Wildcard   map[string]Wildcard `json:"wildcard,omitempty"`
}

type MultiMatch struct {
	Query     string   `json:"query"`
	Fields    []string `json:"fields"`
	Operator  string   `json:"operator"`
	Fuzziness string   `json:"fuzziness"`
}

type Wildcard struct {
	Value string `json:"value"`
}

// SortClause maps a field to its ordering.
type SortClause map[string]SortOrder

type SortOrder struct {
	Order string `json:"order"`
}

// IsMatchAll reports whether the request matches every document.
func (r *Request) IsMatchAll() bool {
	return r.Query.MatchAll != nil
}
