package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/DeyanBora/ElasticSearch.API/pkg/slug"
)

// Reference is a category, brand or manufacturer embedded by value in a
// product document.
type Reference struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Slug        string     `json:"slug"`
	IsDeleted   bool       `json:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at"`
}

// ProductDocument is the indexed shape of a product. ID is the document id
// in the store; ProductID is the catalogue's own numeric id.
type ProductDocument struct {
	ID           string    `json:"id"`
	ProductID    int64     `json:"product_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Code         string    `json:"code"`
	Slug         string    `json:"slug"`
	Image        string    `json:"image"`
	Price        int64     `json:"price"`
	Stock        int       `json:"stock"`
	Category     Reference `json:"category"`
	Brand        Reference `json:"brand"`
	Manufacturer Reference `json:"manufacturer"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ReferenceFields carries the optional inputs for a Reference. Nil means
// absent.
type ReferenceFields struct {
	ID          *int64
	Name        *string
	Description *string
	Slug        *string
	IsDeleted   *bool
	DeletedAt   *time.Time
}

// ProductFields carries the optional inputs for a ProductDocument. Nil means
// absent.
type ProductFields struct {
	ID           *string
	ProductID    *int64
	Title        *string
	Description  *string
	Code         *string
	Slug         *string
	Image        *string
	Price        *int64
	Stock        *int
	Category     *ReferenceFields
	Brand        *ReferenceFields
	Manufacturer *ReferenceFields
}

// NewProductDocument builds a document from f, filling every absent input
// with its zero value. A missing document id is generated, a missing slug is
// derived from the title and both timestamps are set to now.
func NewProductDocument(f ProductFields, now time.Time) ProductDocument {
	now = now.UTC()
	doc := ProductDocument{
		ID:        valueOr(f.ID, ""),
		CreatedAt: now,
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.Apply(f, now)
	return doc
}

// Apply overwrites the fields present in f and leaves the others untouched.
// The document id and creation time never change.
func (d *ProductDocument) Apply(f ProductFields, now time.Time) {
	now = now.UTC()
	set(&d.ProductID, f.ProductID)
	set(&d.Title, f.Title)
	set(&d.Description, f.Description)
	set(&d.Code, f.Code)
	set(&d.Image, f.Image)
	set(&d.Price, f.Price)
	set(&d.Stock, f.Stock)

	switch {
	case f.Slug != nil && *f.Slug != "":
		d.Slug = *f.Slug
	case f.Title != nil || d.Slug == "":
		d.Slug = slug.Generate(d.Title)
	}

	applyReference(&d.Category, f.Category, now)
	applyReference(&d.Brand, f.Brand, now)
	applyReference(&d.Manufacturer, f.Manufacturer, now)
	d.UpdatedAt = now
}

func applyReference(r *Reference, f *ReferenceFields, now time.Time) {
	if f == nil {
		return
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	set(&r.ID, f.ID)
	set(&r.Name, f.Name)
	set(&r.Description, f.Description)
	set(&r.IsDeleted, f.IsDeleted)

	switch {
	case f.Slug != nil && *f.Slug != "":
		r.Slug = *f.Slug
	case f.Name != nil || r.Slug == "":
		r.Slug = slug.Generate(r.Name)
	}

	switch {
	case f.DeletedAt != nil:
		at := f.DeletedAt.UTC()
		r.DeletedAt = &at
	case r.IsDeleted && r.DeletedAt == nil:
		at := now
		r.DeletedAt = &at
	case !r.IsDeleted:
		r.DeletedAt = nil
	}
	r.UpdatedAt = now
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
