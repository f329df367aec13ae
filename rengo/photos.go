package rengo

import (
	"fmt"
	"strings"
)

const (
	DefaultImageBaseURL   = "https://pic.cbiz.ne.jp/pic/"
	DefaultPlaceholderURL = "https://ralsnet.example.formatline.com/app/plugins/wp-rengodb/assets/img/noimg.png"
	DefaultSupplierID     = "2000"
)

// PhotoConfig locates the photo storage. Zero fields fall back to the
// package defaults.
type PhotoConfig struct {
	BaseURL           string
	PlaceholderURL    string
	DefaultSupplierID string
}

func (c PhotoConfig) withDefaults() PhotoConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultImageBaseURL
	}
	if c.PlaceholderURL == "" {
		c.PlaceholderURL = DefaultPlaceholderURL
	}
	if c.DefaultSupplierID == "" {
		c.DefaultSupplierID = DefaultSupplierID
	}
	return c
}

// Photo is the resolved thumbnail of a listing and the rule that chose it.
type Photo struct {
	URL  string
	Rule string
}

const (
	RuleBuildingDelegate = "building-delegate"
	RulePropertyDelegate = "property-delegate"
	RuleImageScan        = "image-scan"
	RulePlaceholder      = "placeholder"
)

// photoKey carries the identifiers every filename pattern needs.
type photoKey struct {
	supplier string
	building string
	property string
}

// photoRule.match returns a filename relative to the supplier directory, or
// false when the rule does not apply.
type photoRule struct {
	name  string
	match func(l RawListing, k photoKey) (string, bool)
}

// photoRules is evaluated top to bottom; the first rule that matches decides.
var photoRules = []photoRule{
	{RuleBuildingDelegate, buildingDelegate},
	{RulePropertyDelegate, propertyDelegate},
	{RuleImageScan, imageScan},
}

// ResolvePhoto picks exactly one thumbnail URL for the listing.
func ResolvePhoto(l RawListing, cfg PhotoConfig) Photo {
	cfg = cfg.withDefaults()
	k := photoKey{
		supplier: strings.TrimSpace(l.SupplierID),
		building: strings.TrimSpace(l.BuildingID),
		property: strings.TrimSpace(l.PropertyID),
	}
	if k.supplier == "" || k.supplier == "0" {
		k.supplier = cfg.DefaultSupplierID
	}
	for _, r := range photoRules {
		if name, ok := r.match(l, k); ok {
			return Photo{URL: cfg.BaseURL + k.supplier + "/" + name, Rule: r.name}
		}
	}
	return Photo{URL: cfg.PlaceholderURL, Rule: RulePlaceholder}
}

func buildingDelegate(l RawListing, k photoKey) (string, bool) {
	if l.DelegateImgBuilding == nil || *l.DelegateImgBuilding <= 0 {
		return "", false
	}
	return buildingFile(k, *l.DelegateImgBuilding), true
}

func propertyDelegate(l RawListing, k photoKey) (string, bool) {
	if l.DelegateImg == nil || *l.DelegateImg <= 0 {
		return "", false
	}
	n := *l.DelegateImg
	for _, img := range l.PropertyImages {
		if img.Number != nil && *img.Number == n {
			if img.Category == CategoryLayout {
				return layoutFile(k, n), true
			}
			break
		}
	}
	return propertyFile(k, n), true
}

func imageScan(l RawListing, k photoKey) (string, bool) {
	if len(l.Images) == 0 {
		return "", false
	}
	selected := l.Images[0]
	for _, img := range l.Images {
		if img.Category == CategoryExterior {
			selected = img
			break
		}
	}
	if selected.Number == nil {
		return "", false
	}
	n := *selected.Number
	switch selected.Category {
	case CategoryExterior:
		return buildingFile(k, n), true
	case CategoryLayout:
		return layoutFile(k, n), true
	default:
		return propertyFile(k, n), true
	}
}

// Storage numbers photos from zero while the catalog counts from one;
// index 1 has a dedicated suffix in both series.

func buildingFile(k photoKey, n int) string {
	if n == 1 {
		return fmt.Sprintf("c-%s-%s-g.jpg", k.supplier, k.building)
	}
	return fmt.Sprintf("c-%s-%s-%d.jpg", k.supplier, k.building, n-1)
}

func layoutFile(k photoKey, n int) string {
	if n == 1 {
		return fmt.Sprintf("r-%s-%s-m.jpg", k.supplier, k.property)
	}
	return propertyFile(k, n)
}

func propertyFile(k photoKey, n int) string {
	return fmt.Sprintf("r-%s-%s-%d.jpg", k.supplier, k.property, max(1, n-1))
}
