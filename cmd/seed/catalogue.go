package main

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"

	"github.com/DeyanBora/ElasticSearch.API/internal/domain"
)

// seedNamespace makes document ids stable across runs, so re-seeding
// overwrites instead of duplicating.
var seedNamespace = uuid.MustParse("6f1c9a2e-3d4b-5e8f-9a0b-1c2d3e4f5a6b")

type referenceDef struct {
	ID   int64
	Name string
	Slug string
}

var brands = []referenceDef{
	{1, "Northwind", "northwind"},
	{2, "Acme", "acme"},
	{3, "Contoso", "contoso"},
	{4, "Fabrikam", "fabrikam"},
	{5, "Globex", "globex"},
	{6, "Initech", "initech"},
	{7, "Umbrella", "umbrella"},
	{8, "Tailspin", "tailspin"},
}

var manufacturers = []referenceDef{
	{1, "Lakeside Industries", "lakeside-industries"},
	{2, "Blue Yonder Works", "blue-yonder-works"},
	{3, "Wingtip Manufacturing", "wingtip-manufacturing"},
	{4, "Proseware Ltd", "proseware-ltd"},
}

// categoryDef is a leaf category with the product types sold in it.
type categoryDef struct {
	referenceDef
	Types []string
}

// topCategory groups leaf categories under a share of the catalogue.
type topCategory struct {
	Name       string
	Weight     float64 // sums to 1.0 across topCategories
	Categories []categoryDef
}

var topCategories = []topCategory{
	{
		Name:   "Clothing",
		Weight: 0.35,
		Categories: []categoryDef{
			{referenceDef{101, "Jackets", "jackets"}, []string{"Jacket", "Parka", "Bomber Jacket", "Rain Jacket"}},
			{referenceDef{102, "Shirts", "shirts"}, []string{"Shirt", "Oxford Shirt", "Flannel Shirt", "Polo"}},
			{referenceDef{103, "Trousers", "trousers"}, []string{"Chinos", "Jeans", "Joggers", "Cargo Trousers"}},
			{referenceDef{104, "Knitwear", "knitwear"}, []string{"Sweater", "Cardigan", "Hoodie"}},
		},
	},
	{
		Name:   "Footwear",
		Weight: 0.20,
		Categories: []categoryDef{
			{referenceDef{201, "Sneakers", "sneakers"}, []string{"Sneaker", "Running Shoe", "Trail Shoe"}},
			{referenceDef{202, "Boots", "boots"}, []string{"Boot", "Chelsea Boot", "Hiking Boot"}},
		},
	},
	{
		Name:   "Home",
		Weight: 0.25,
		Categories: []categoryDef{
			{referenceDef{301, "Kitchen", "kitchen"}, []string{"Kettle", "Chef Knife", "Frying Pan", "Coffee Grinder"}},
			{referenceDef{302, "Lighting", "lighting"}, []string{"Desk Lamp", "Floor Lamp", "Pendant Light"}},
			{referenceDef{303, "Textiles", "textiles"}, []string{"Throw Blanket", "Cushion Cover", "Bath Towel"}},
		},
	},
	{
		Name:   "Accessories",
		Weight: 0.20,
		Categories: []categoryDef{
			{referenceDef{401, "Bags", "bags"}, []string{"Backpack", "Tote Bag", "Messenger Bag"}},
			{referenceDef{402, "Watches", "watches"}, []string{"Field Watch", "Dive Watch", "Smartwatch Strap"}},
			{referenceDef{403, "Belts", "belts"}, []string{"Leather Belt", "Canvas Belt", "Reversible Belt"}},
		},
	},
}

var prefixes = []string{
	"Classic", "Essential", "Premium", "Lightweight", "Heavy Duty",
	"Vintage", "Slim", "Relaxed", "Organic", "Recycled",
	"Waterproof", "Insulated", "Everyday", "Limited Edition", "Compact",
}

var colors = []string{
	"Black", "Navy", "Olive", "Charcoal", "Ivory",
	"Burgundy", "Sand", "Forest Green", "Slate", "Rust",
}

var descriptionTemplates = []string{
	"A %s built for everyday use, made from durable materials that last season after season.",
	"Our %s pairs a clean design with practical details. Easy to care for.",
	"The %s you reach for first. Comfortable, versatile and made to be worn hard.",
	"%s crafted with attention to detail and finished by hand.",
}

// generateCatalogue returns total products spread over topCategories by
// weight. The output depends only on total and seed.
func generateCatalogue(total int, seed int64) []domain.ProductFields {
	rng := rand.New(rand.NewSource(seed))
	products := make([]domain.ProductFields, 0, total)

	remaining := total
	idx := 0
	for i, tc := range topCategories {
		count := int(float64(total) * tc.Weight)
		if i == len(topCategories)-1 {
			count = remaining
		}
		remaining -= count

		for j := 0; j < count; j++ {
			cat := tc.Categories[j%len(tc.Categories)]
			products = append(products, generateProduct(rng, idx, cat))
			idx++
		}
	}
	return products
}

func generateProduct(rng *rand.Rand, idx int, cat categoryDef) domain.ProductFields {
	prefix := prefixes[rng.Intn(len(prefixes))]
	productType := cat.Types[rng.Intn(len(cat.Types))]
	color := colors[rng.Intn(len(colors))]
	brand := brands[rng.Intn(len(brands))]
	manufacturer := manufacturers[rng.Intn(len(manufacturers))]

	title := fmt.Sprintf("%s %s - %s", prefix, productType, color)
	description := fmt.Sprintf(descriptionTemplates[rng.Intn(len(descriptionTemplates))], productType)

	id := uuid.NewSHA1(seedNamespace, []byte("product:"+strconv.Itoa(idx))).String()
	productID := int64(idx + 1)
	code := fmt.Sprintf("SKU-%s-%06d", cat.Slug, idx+1)
	image := fmt.Sprintf("https://picsum.photos/seed/%s/600/800", id[:8])
	// 9.90 to 498.90 in minor units.
	price := int64(990 + rng.Intn(490)*100)
	stock := rng.Intn(200)

	return domain.ProductFields{
		ID:           &id,
		ProductID:    &productID,
		Title:        &title,
		Description:  &description,
		Code:         &code,
		Image:        &image,
		Price:        &price,
		Stock:        &stock,
		Category:     cat.fields(),
		Brand:        brand.fields(),
		Manufacturer: manufacturer.fields(),
	}
}

func (r referenceDef) fields() *domain.ReferenceFields {
	id, name, slug := r.ID, r.Name, r.Slug
	return &domain.ReferenceFields{ID: &id, Name: &name, Slug: &slug}
}
