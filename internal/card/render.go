package card

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/yourorg/rals-widget/rengo"
)

// NoResults is the whole output for an empty listing set.
const NoResults template.HTML = `<p>No properties found.</p>`

var (
	cardTmpl = template.Must(template.New("card").Parse(`
<div class="property-card">
  <div class="property-image">
    <img src="{{.ImageURL}}" alt="物件画像" class="property-img" onerror="this.style.display='none'; this.nextElementSibling.style.display='block';">
    <div class="rals-alt-text" style="display:none;">物件画像</div>
  </div>
  <div class="property-info">
    <div class="property-rent">賃料: {{.Price}}</div>
    <div class="property-details">
      {{if .Transit}}{{.Transit}}<br>{{end}}
      {{.Address}}<br>
      {{.Area}}
    </div>
    <a href="{{.DetailURL}}" target="_blank" rel="noopener noreferrer" class="property-detail-btn">
      物件詳細を見る
    </a>
  </div>
</div>`))

	gridTmpl = template.Must(template.New("grid").Parse(`
<div class="properties-grid">
  <div class="property-cards">{{range .}}{{.}}{{end}}
  </div>
</div>
`))
)

// Renderer turns listings into card markup.
type Renderer struct {
	norm   *Normalizer
	logger *slog.Logger
}

func NewRenderer(norm *Normalizer, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Renderer{norm: norm, logger: logger}
}

// Render normalizes and renders every listing in order. It returns
// NoResults for an empty list. A listing that fails is logged and left
// out; the others still render.
func (r *Renderer) Render(list []rengo.RawListing) (template.HTML, int) {
	html, _, n := r.RenderListings(list)
	return html, n
}

// RenderListings is Render that also returns the records it normalized.
func (r *Renderer) RenderListings(list []rengo.RawListing) (template.HTML, []DisplayRecord, int) {
	records := make([]DisplayRecord, 0, len(list))
	for i, l := range list {
		rec, err := r.Normalize(l)
		if err != nil {
			r.logger.Warn("listing skipped", "index", i, "building_id", l.BuildingID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	html, n := r.RenderRecords(records)
	return html, records, n
}

// RenderRecords renders already normalized records.
func (r *Renderer) RenderRecords(records []DisplayRecord) (template.HTML, int) {
	if len(records) == 0 {
		return NoResults, 0
	}
	cards := make([]template.HTML, 0, len(records))
	for i, rec := range records {
		c, err := renderCard(rec)
		if err != nil {
			r.logger.Warn("record skipped", "index", i, "error", err)
			continue
		}
		cards = append(cards, c)
	}
	return r.grid(cards), len(cards)
}

// Normalize exposes the renderer's normalizer for callers that also need
// the structured records.
func (r *Renderer) Normalize(l rengo.RawListing) (rec DisplayRecord, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("normalize listing: %v", p)
		}
	}()
	return r.norm.Normalize(l), nil
}

func renderCard(rec DisplayRecord) (template.HTML, error) {
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, rec); err != nil {
		return "", fmt.Errorf("render card: %w", err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) grid(cards []template.HTML) template.HTML {
	if len(cards) == 0 {
		return NoResults
	}
	var buf bytes.Buffer
	if err := gridTmpl.Execute(&buf, cards); err != nil {
		r.logger.Error("render grid", "error", err)
		return NoResults
	}
	return template.HTML(buf.String())
}
