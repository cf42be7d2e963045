package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testReference struct {
	Name string `json:"name" validate:"max=10"`
}

type testItem struct {
	Title string         `json:"title" validate:"required,max=20"`
	Price int64          `json:"price" validate:"gte=0"`
	Brand *testReference `json:"brand"`
	Image string         `json:"image" validate:"omitempty,url"`
}

type testBatch struct {
	Items []testItem `json:"items" validate:"required,min=1,max=2,dive"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(testItem{Title: "Desk Lamp", Price: 1999}))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	fields := fieldsOf(t, Validate(testItem{Price: 10}))
	assert.Equal(t, "is required", fields["title"])
}

func TestValidate_NestedPath(t *testing.T) {
	fields := fieldsOf(t, Validate(testItem{Title: "Lamp", Brand: &testReference{Name: "a very long brand"}}))
	assert.Equal(t, "must be at most 10 characters", fields["brand.name"])
}

func TestValidate_NegativeNumber(t *testing.T) {
	fields := fieldsOf(t, Validate(testItem{Title: "Lamp", Price: -1}))
	assert.Equal(t, "must be greater than or equal to 0", fields["price"])
}

func TestValidate_InvalidURL(t *testing.T) {
	fields := fieldsOf(t, Validate(testItem{Title: "Lamp", Image: "not a url"}))
	assert.Equal(t, "must be a valid URL", fields["image"])
}

func TestValidate_SliceBounds(t *testing.T) {
	fields := fieldsOf(t, Validate(testBatch{Items: []testItem{}}))
	assert.Equal(t, "must contain at least 1 items", fields["items"])

	fields = fieldsOf(t, Validate(testBatch{Items: []testItem{{Title: "a"}, {Title: "b"}, {Title: "c"}}}))
	assert.Equal(t, "must contain at most 2 items", fields["items"])
}

func TestValidate_DiveReportsIndex(t *testing.T) {
	fields := fieldsOf(t, Validate(testBatch{Items: []testItem{{Title: "ok"}, {}}}))
	assert.Equal(t, "is required", fields["items[1].title"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(testItem{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'title' is required")
}
