package diagnose

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// CategoryID is the value sent as disease_type.
type CategoryID string

const (
	CategoryEye       CategoryID = "eye"
	CategorySkin      CategoryID = "skin"
	CategoryPneumonia CategoryID = "pneumonia"
	CategoryBrain     CategoryID = "brain"
	CategoryHeart     CategoryID = "heart"
)

type Category struct {
	ID          CategoryID
	Name        string
	Description string
	Disabled    bool
}

var catalog = []Category{
	{ID: CategoryEye, Name: "Eye Diseases", Description: "Cataract, Glaucoma, Diabetic Retinopathy"},
	{ID: CategorySkin, Name: "Skin Cancer", Description: "Melanoma Detection"},
	{ID: CategoryPneumonia, Name: "Pneumonia", Description: "X-ray Analysis"},
	{ID: CategoryBrain, Name: "Brain Tumor", Description: "Coming Soon", Disabled: true},
	{ID: CategoryHeart, Name: "Heart Disease", Description: "Coming Soon", Disabled: true},
}

// Categories returns the catalog in display order.
func Categories() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// Enabled returns the categories a user may pick.
func Enabled() []Category {
	return lo.Filter(catalog, func(c Category, _ int) bool { return !c.Disabled })
}

func Lookup(id CategoryID) (Category, bool) {
	return lo.Find(catalog, func(c Category) bool { return c.ID == id })
}

// ParseCategory resolves a raw form value to a selectable category.
func ParseCategory(raw string) (Category, error) {
	id := CategoryID(strings.ToLower(strings.TrimSpace(raw)))
	c, ok := Lookup(id)
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
	if c.Disabled {
		return c, fmt.Errorf("%w: %s", ErrCategoryDisabled, c.ID)
	}
	return c, nil
}

func (id CategoryID) String() string { return string(id) }
