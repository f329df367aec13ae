package card

import (
	"strings"

	"github.com/yourorg/rals-widget/internal/canon"
	"github.com/yourorg/rals-widget/rengo"
)

const DefaultDetailBaseURL = "https://ralsnet.example.formatline.com/property/"

// Config holds the constants a normalizer needs. Zero fields take the
// package defaults.
type Config struct {
	DetailBaseURL       string
	ImageBaseURL        string
	PlaceholderImageURL string
	DefaultSupplierID   string
}

// DisplayRecord is the display-ready form of one listing.
type DisplayRecord struct {
	Price     string `json:"price"`
	Area      string `json:"area"`
	Transit   string `json:"transit,omitempty"`
	Address   string `json:"address"`
	ImageURL  string `json:"image_url"`
	ImageRule string `json:"image_rule"`
	DetailURL string `json:"detail_url"`
}

type Normalizer struct {
	detailBase string
	photos     rengo.PhotoConfig
}

func NewNormalizer(cfg Config) *Normalizer {
	n := &Normalizer{
		detailBase: cfg.DetailBaseURL,
		photos: rengo.PhotoConfig{
			BaseURL:           cfg.ImageBaseURL,
			PlaceholderURL:    cfg.PlaceholderImageURL,
			DefaultSupplierID: cfg.DefaultSupplierID,
		},
	}
	if n.detailBase == "" {
		n.detailBase = DefaultDetailBaseURL
	}
	return n
}

// Normalize maps a raw listing to its display record. It has no side
// effects and degrades every missing field to a placeholder or "".
func (n *Normalizer) Normalize(l rengo.RawListing) DisplayRecord {
	photo := rengo.ResolvePhoto(l, n.photos)
	return DisplayRecord{
		Price:     canon.FormatPrice(l.PropertyPrice),
		Area:      canon.FormatArea(l.ExclusiveSize),
		Transit:   canon.Transit(l),
		Address:   canon.ComposeAddress(l.Area1Name, l.Area2Name, l.Area3Name, l.Area4),
		ImageURL:  photo.URL,
		ImageRule: photo.Rule,
		DetailURL: n.detailURL(l),
	}
}

func (n *Normalizer) detailURL(l rengo.RawListing) string {
	id := strings.TrimSpace(l.BuildingMasterID)
	if id == "" {
		id = strings.TrimSpace(l.BuildingID)
	}
	return n.detailBase + id
}
