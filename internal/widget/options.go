package widget

import (
	"html/template"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/yourorg/rals-widget/internal/card"
	"github.com/yourorg/rals-widget/rengo"
)

const (
	DefaultSupplier     = "2000"
	DefaultPropertyType = "2"
)

// Options configure one widget instance. Every field is optional.
type Options struct {
	Name          string `yaml:"name" json:"name,omitempty"`
	APIBase       string `yaml:"api" json:"api,omitempty"`
	DetailBaseURL string `yaml:"detail_url" json:"detail_url,omitempty"`
	Supplier      string `yaml:"supplier" json:"supplier,omitempty"`
	PropertyType  string `yaml:"prop" json:"prop,omitempty"`
	Limit         int    `yaml:"limit" json:"limit,omitempty"`
	Color         string `yaml:"color" json:"color,omitempty"`
	HoverColor    string `yaml:"hover_color" json:"hover_color,omitempty"`
	CardBg        string `yaml:"card_bg" json:"card_bg,omitempty"`
}

// WithDefaults fills unset endpoint and query fields.
func (o Options) WithDefaults() Options {
	if o.APIBase == "" {
		o.APIBase = rengo.DefaultAPIBaseURL
	}
	if o.DetailBaseURL == "" {
		o.DetailBaseURL = card.DefaultDetailBaseURL
	}
	if o.Supplier == "" {
		o.Supplier = DefaultSupplier
	}
	if o.PropertyType == "" {
		o.PropertyType = DefaultPropertyType
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}

// Query is the catalog query of the instance.
func (o Options) Query() rengo.Query {
	return rengo.Query{Supplier: o.Supplier, PropertyType: o.PropertyType, Limit: o.Limit}
}

// OptionsFromQuery reads instance options from URL query parameters using
// the widget's data attribute names. An unparseable limit is ignored.
func OptionsFromQuery(v url.Values) Options {
	o := Options{
		Name:          strings.TrimSpace(v.Get("name")),
		APIBase:       strings.TrimSpace(v.Get("api")),
		DetailBaseURL: strings.TrimSpace(v.Get("detail_url")),
		Supplier:      strings.TrimSpace(v.Get("sup")),
		PropertyType:  strings.TrimSpace(v.Get("prop")),
		Color:         strings.TrimSpace(v.Get("color")),
		HoverColor:    strings.TrimSpace(v.Get("hover_color")),
		CardBg:        strings.TrimSpace(v.Get("card_bg")),
	}
	if s := v.Get("limit"); s != "" {
		if i, err := strconv.Atoi(s); err == nil && i > 0 {
			o.Limit = i
		}
	}
	return o
}

var (
	reHexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	reNamedColor = regexp.MustCompile(`^[a-zA-Z]+$`)
	reFuncColor  = regexp.MustCompile(`^(?i:rgba?|hsla?)\([0-9a-zA-Z.,%/+\- ]*\)$`)
	reVarColor   = regexp.MustCompile(`^var\(\s*--[a-zA-Z0-9_-]+\s*\)$`)
)

// CSSColor returns s as a CSS value when it is a hex, named, rgb(a),
// hsl(a) or var() color, and "" otherwise.
func CSSColor(s string) template.CSS {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 64 {
		return ""
	}
	for _, re := range []*regexp.Regexp{reHexColor, reNamedColor, reFuncColor, reVarColor} {
		if re.MatchString(s) {
			return template.CSS(s)
		}
	}
	return ""
}
