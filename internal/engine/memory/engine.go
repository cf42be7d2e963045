package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
	"github.com/DeyanBora/ElasticSearch.API/internal/engine"
	"github.com/DeyanBora/ElasticSearch.API/internal/query"
	apperrors "github.com/DeyanBora/ElasticSearch.API/pkg/errors"
)

const resource = "product"

// Engine is an in-process DocumentStore. It evaluates the same request
// shape as Elasticsearch: match-all, fuzzy multi-field terms and wildcard
// patterns, ordered by title. Safe for concurrent use.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.ProductDocument
}

var _ engine.DocumentStore = (*Engine)(nil)

func New() *Engine {
	return &Engine{docs: make(map[string]domain.ProductDocument)}
}

func (e *Engine) Create(_ context.Context, doc *domain.ProductDocument) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.docs[doc.ID]; ok {
		return "", apperrors.AlreadyExists(resource, doc.ID)
	}
	e.docs[doc.ID] = *doc
	return doc.ID, nil
}

func (e *Engine) Update(_ context.Context, id string, doc *domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.docs[id]; !ok {
		return apperrors.NotFound(resource, id)
	}
	updated := *doc
	updated.ID = id
	e.docs[id] = updated
	return nil
}

func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.docs[id]; !ok {
		return apperrors.NotFound(resource, id)
	}
	delete(e.docs, id)
	return nil
}

func (e *Engine) Get(_ context.Context, id string) (*domain.ProductDocument, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, apperrors.NotFound(resource, id)
	}
	return &doc, nil
}

func (e *Engine) Search(_ context.Context, req *query.Request) (*engine.SearchResult, error) {
	start := time.Now()
	if req.From < 0 {
		return nil, apperrors.InvalidPagingParameter("from must be >= 0, got " + strconv.Itoa(req.From))
	}
	if req.Size < 0 {
		return nil, apperrors.InvalidPagingParameter("size must be >= 0, got " + strconv.Itoa(req.Size))
	}

	e.mu.RLock()
	matched := make([]domain.ProductDocument, 0, len(e.docs))
	for _, doc := range e.docs {
		if matches(doc, req.Query) {
			matched = append(matched, doc)
		}
	}
	e.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Title != matched[j].Title {
			return matched[i].Title < matched[j].Title
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	from := min(req.From, total)
	to := min(from+req.Size, total)

	return &engine.SearchResult{
		Documents: matched[from:to],
		Total:     total,
		TookMs:    time.Since(start).Milliseconds(),
	}, nil
}

func (e *Engine) BulkIndex(_ context.Context, docs []domain.ProductDocument) (*engine.BulkResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var failed []engine.BulkItemError
	for _, doc := range docs {
		if doc.ID == "" {
			failed = append(failed, engine.BulkItemError{Status: 400, Reason: "document id is required"})
			continue
		}
		e.docs[doc.ID] = doc
	}
	return engine.NewBulkResult(len(docs), failed)
}

func (e *Engine) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

func matches(doc domain.ProductDocument, q query.Query) bool {
	switch {
	case q.MatchAll != nil:
		return true
	case q.Bool != nil:
		minimum := 1
		if q.Bool.MinimumShouldMatch != nil {
			minimum = *q.Bool.MinimumShouldMatch
		}
		hits := 0
		for _, clause := range q.Bool.Should {
			if clauseMatches(doc, clause) {
				hits++
			}
		}
		return hits >= minimum
	default:
		return false
	}
}

func clauseMatches(doc domain.ProductDocument, c query.Clause) bool {
	if mm := c.MultiMatch; mm != nil {
		maxEdits, _ := strconv.Atoi(mm.Fuzziness)
		for _, field := range mm.Fields {
			if fuzzyMatch(mm.Query, fieldValue(doc, field), maxEdits) {
				return true
			}
		}
	}
	for field, w := range c.Wildcard {
		if wildcardMatch(strings.ToLower(w.Value), strings.ToLower(fieldValue(doc, field))) {
			return true
		}
	}
	return false
}

func fieldValue(doc domain.ProductDocument, field string) string {
	switch field {
	case "code":
		return doc.Code
	case "title":
		return doc.Title
	case "description":
		return doc.Description
	case "image":
		return doc.Image
	case "slug":
		return doc.Slug
	}

	prefix, sub, ok := strings.Cut(field, ".")
	if !ok {
		return ""
	}
	var ref domain.Reference
	switch prefix {
	case "category":
		ref = doc.Category
	case "brand":
		ref = doc.Brand
	case "manufacturer":
		ref = doc.Manufacturer
	default:
		return ""
	}
	switch sub {
	case "name":
		return ref.Name
	case "description":
		return ref.Description
	case "slug":
		return ref.Slug
	}
	return ""
}

// fuzzyMatch reports whether any query term is within maxEdits of any term
// of value, both lowercased and split on non-alphanumerics.
func fuzzyMatch(q, value string, maxEdits int) bool {
	terms := tokenize(value)
	if len(terms) == 0 {
		return false
	}
	for _, qt := range tokenize(q) {
		for _, t := range terms {
			if levenshtein(qt, t) <= maxEdits {
				return true
			}
		}
	}
	return false
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// wildcardMatch matches s against a pattern where * is any run of
// characters and ? is exactly one.
func wildcardMatch(pattern, s string) bool {
	p, str := []rune(pattern), []rune(s)
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(str) {
		switch {
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(p) && (p[pi] == '?' || p[pi] == str[si]):
			pi++
			si++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
