package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewProductDocument_Defaults(t *testing.T) {
	doc := NewProductDocument(ProductFields{}, fixedNow)

	assert.NotEmpty(t, doc.ID)
	assert.Zero(t, doc.ProductID)
	assert.Empty(t, doc.Title)
	assert.Empty(t, doc.Slug)
	assert.Zero(t, doc.Price)
	assert.Equal(t, Reference{}, doc.Category)
	assert.Equal(t, Reference{}, doc.Brand)
	assert.Equal(t, Reference{}, doc.Manufacturer)
	assert.Equal(t, fixedNow, doc.CreatedAt)
	assert.Equal(t, fixedNow, doc.UpdatedAt)
}

func TestNewProductDocument_FromFields(t *testing.T) {
	doc := NewProductDocument(ProductFields{
		ID:        ptr("doc-1"),
		ProductID: ptr(int64(42)),
		Title:     ptr("Çelik Çaydanlık 2L"),
		Code:      ptr("KT-2000"),
		Price:     ptr(int64(129900)),
		Stock:     ptr(7),
		Brand:     &ReferenceFields{ID: ptr(int64(3)), Name: ptr("Acme Home")},
		Manufacturer: &ReferenceFields{
			Name:      ptr("Acme Industries"),
			Slug:      ptr("acme-ind"),
			IsDeleted: ptr(true),
		},
	}, fixedNow)

	assert.Equal(t, "doc-1", doc.ID)
	assert.EqualValues(t, 42, doc.ProductID)
	assert.Equal(t, "celik-caydanlik-2l", doc.Slug)
	assert.EqualValues(t, 129900, doc.Price)
	assert.Equal(t, 7, doc.Stock)

	assert.Equal(t, "acme-home", doc.Brand.Slug)
	assert.Equal(t, fixedNow, doc.Brand.CreatedAt)
	assert.Nil(t, doc.Brand.DeletedAt)

	assert.Equal(t, "acme-ind", doc.Manufacturer.Slug)
	require.NotNil(t, doc.Manufacturer.DeletedAt)
	assert.Equal(t, fixedNow, *doc.Manufacturer.DeletedAt)

	assert.Equal(t, Reference{}, doc.Category)
}

func TestNewProductDocument_ExplicitSlugWins(t *testing.T) {
	doc := NewProductDocument(ProductFields{Title: ptr("Desk Lamp"), Slug: ptr("lamp-01")}, fixedNow)
	assert.Equal(t, "lamp-01", doc.Slug)
}

func TestApply_PartialUpdate(t *testing.T) {
	doc := NewProductDocument(ProductFields{
		Title: ptr("Desk Lamp"),
		Price: ptr(int64(1000)),
		Brand: &ReferenceFields{Name: ptr("Lumo")},
	}, fixedNow)

	later := fixedNow.Add(time.Hour)
	doc.Apply(ProductFields{Price: ptr(int64(900))}, later)

	assert.Equal(t, "Desk Lamp", doc.Title)
	assert.Equal(t, "desk-lamp", doc.Slug)
	assert.EqualValues(t, 900, doc.Price)
	assert.Equal(t, "Lumo", doc.Brand.Name)
	assert.Equal(t, fixedNow, doc.CreatedAt)
	assert.Equal(t, later, doc.UpdatedAt)
	assert.Equal(t, fixedNow, doc.Brand.UpdatedAt)

	doc.Apply(ProductFields{Title: ptr("Floor Lamp")}, later)
	assert.Equal(t, "floor-lamp", doc.Slug)
}

func TestApply_RestoreReference(t *testing.T) {
	doc := NewProductDocument(ProductFields{
		Category: &ReferenceFields{Name: ptr("Lighting"), IsDeleted: ptr(true)},
	}, fixedNow)
	require.NotNil(t, doc.Category.DeletedAt)

	doc.Apply(ProductFields{Category: &ReferenceFields{IsDeleted: ptr(false)}}, fixedNow)
	assert.False(t, doc.Category.IsDeleted)
	assert.Nil(t, doc.Category.DeletedAt)
	assert.Equal(t, "lighting", doc.Category.Slug)
}

func TestProductDocument_JSONShape(t *testing.T) {
	doc := NewProductDocument(ProductFields{ID: ptr("doc-1"), Title: ptr("Lamp")}, fixedNow)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, key := range []string{"id", "product_id", "title", "description", "code", "slug", "image", "price", "stock", "category", "brand", "manufacturer", "created_at", "updated_at"} {
		assert.Contains(t, m, key)
	}
	brand := m["brand"].(map[string]any)
	assert.Contains(t, brand, "deleted_at")
	assert.Nil(t, brand["deleted_at"])
}
