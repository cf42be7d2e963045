// Package query turns a free-text filter and a page request into an
// Elasticsearch search request.
package query

import (
	"github.com/DeyanBora/ElasticSearch.API/pkg/pagination"
)

// SortField is the keyword sub-field of title used for ordering.
const SortField = "title.keyword"

// Fuzziness is the edit distance allowed by the multi-field match.
const Fuzziness = "2"

// SearchFields are matched by the fuzzy multi-field clause.
var SearchFields = []string{
	"code",
	"title",
	"description",
	"image",
	"slug",
	"category.name",
	"category.description",
	"category.slug",
	"brand.name",
	"brand.description",
	"brand.slug",
	"manufacturer.name",
	"manufacturer.description",
	"manufacturer.slug",
}

// WildcardFields each get their own "*filter*" clause, in this order.
var WildcardFields = []string{
	"manufacturer.name",
	"title",
	"description",
	"brand.name",
}

// Page is a 1-based page number and a page size.
type Page struct {
	Number int
	Size   int
}

// Offset is the number of documents skipped before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// Validate rejects page numbers below 1, sizes outside [0, MaxSize] and pages
// reaching past pagination.MaxResultWindow.
func (p Page) Validate() error {
	_, err := pagination.New(p.Number, p.Size)
	return err
}

// Build constructs the search request for filter and page. An empty filter
// matches every document. A non-empty filter must satisfy at least one of a
// fuzzy multi-field match or a substring wildcard on four fields. Results
// are always ordered by title ascending.
//
// The filter is copied into the wildcard patterns verbatim.
func Build(filter string, page Page) *Request {
	req := &Request{
		From: page.Offset(),
		Size: page.Size,
		Sort: []SortClause{{SortField: {Order: "asc"}}},
	}

	if filter == "" {
		req.Query = Query{MatchAll: &MatchAll{}}
		return req
	}

	should := make([]Clause, 0, 1+len(WildcardFields))
	should = append(should, Clause{MultiMatch: &MultiMatch{
		Query:     filter,
		Fields:    SearchFields,
		Operator:  "or",
		Fuzziness: Fuzziness,
	}})
	for _, field := range WildcardFields {
		should = append(should, Clause{Wildcard: map[string]Wildcard{
			field: {Value: "*" + filter + "*"},
		}})
	}

	minimum := 1
	req.Query = Query{Bool: &BoolQuery{
		Should:             should,
		MinimumShouldMatch: &minimum,
	}}
	return req
}
