package canon

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/yourorg/rals-widget/rengo"
)

// missingMinutes sorts options without a usable walking time last.
const missingMinutes = 999

// TransitSource is one representation of a listing's access data.
// Implementations are Structured and Flattened.
type TransitSource interface {
	describe() string
}

// Structured is the catalog's jsonTraffic list.
type Structured []rengo.TransitOption

// Flattened is the catalog's trafficDataStr text, options joined by " / ".
type Flattened string

// SourcesOf returns the listing's transit sources in precedence order.
func SourcesOf(l rengo.RawListing) []TransitSource {
	var out []TransitSource
	if len(l.JSONTraffic) > 0 {
		out = append(out, Structured(l.JSONTraffic))
	}
	if strings.TrimSpace(l.TrafficDataStr) != "" {
		out = append(out, Flattened(l.TrafficDataStr))
	}
	return out
}

// ResolveTransit describes the nearest access using the first source that
// yields anything. It returns "" when none does.
func ResolveTransit(sources ...TransitSource) string {
	for _, s := range sources {
		if s == nil {
			continue
		}
		if d := s.describe(); d != "" {
			return d
		}
	}
	return ""
}

// Transit resolves the listing's nearest access description.
func Transit(l rengo.RawListing) string {
	return ResolveTransit(SourcesOf(l)...)
}

func (s Structured) describe() string {
	opts := make([]rengo.TransitOption, 0, len(s))
	for _, o := range s {
		if o.TransportMinStation == nil && o.TransportMinBus == nil {
			continue
		}
		opts = append(opts, o)
	}
	if len(opts) == 0 {
		return ""
	}
	sort.SliceStable(opts, func(i, j int) bool {
		return sortMinutes(opts[i]) < sortMinutes(opts[j])
	})
	first := opts[0]
	if first.StationName != "" && positive(first.TransportMinStation) {
		return walk(first.StationName, *first.TransportMinStation)
	}
	if bus := strings.TrimSpace(first.BusInfo); bus != "" && positive(first.TransportMinBus) {
		return walk(bus, *first.TransportMinBus)
	}
	return ""
}

// reWalk matches "<name> 徒歩<minutes>分". \s alone would miss the
// ideographic space common in this data.
var reWalk = regexp.MustCompile(`^(.+?)[\s\p{Zs}]+徒歩(\d+)分`)

func (f Flattened) describe() string {
	first, _, _ := strings.Cut(string(f), " / ")
	first = strings.TrimSpace(first)
	if m := reWalk.FindStringSubmatch(first); m != nil {
		return strings.TrimSpace(m[1]) + "(徒歩" + m[2] + "分)"
	}
	return first
}

// sortMinutes prefers station minutes, then bus minutes; zero counts as
// missing.
func sortMinutes(o rengo.TransitOption) int {
	if positive(o.TransportMinStation) {
		return *o.TransportMinStation
	}
	if positive(o.TransportMinBus) {
		return *o.TransportMinBus
	}
	return missingMinutes
}

func positive(v *int) bool { return v != nil && *v > 0 }

func walk(name string, minutes int) string {
	return name + "(徒歩" + strconv.Itoa(minutes) + "分)"
}
