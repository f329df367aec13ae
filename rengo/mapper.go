package rengo

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNotAList is returned when the payload is valid JSON but not an array.
var ErrNotAList = errors.New("rengo: payload is not a JSON array")

// DecodeListings maps a search-properties payload to listings. A null
// payload is an empty result. Array elements that are not objects are
// dropped and counted in skipped.
func DecodeListings(raw []byte) (listings []RawListing, skipped int, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, 0, nil
	}
	if trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, 0, errors.New("rengo: invalid JSON payload")
		}
		return nil, 0, ErrNotAList
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, 0, err
	}
	out := make([]RawListing, 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			skipped++
			continue
		}
		var l RawListing
		if err := json.Unmarshal(e, &l); err != nil {
			skipped++
			continue
		}
		out = append(out, l)
	}
	return out, skipped, nil
}

// UnmarshalJSON tolerates the catalog's loose typing: ids and numbers may
// arrive as strings or numbers, lists may be missing or of the wrong kind.
func (l *RawListing) UnmarshalJSON(b []byte) error {
	var w struct {
		PropertyPrice flexInt   `json:"propertyPrice"`
		ExclusiveSize flexFloat `json:"exclusiveSize"`

		Area1Name stringNumber `json:"area1Name"`
		Area2Name stringNumber `json:"area2Name"`
		Area3Name stringNumber `json:"area3Name"`
		Area4     stringNumber `json:"area4"`

		JSONTraffic    flexList[TransitOption] `json:"jsonTraffic"`
		TrafficDataStr stringNumber            `json:"trafficDataStr"`

		SupplierID       stringNumber `json:"supplierId"`
		BuildingID       stringNumber `json:"buildingId"`
		PropertyID       stringNumber `json:"propertyId"`
		BuildingMasterID stringNumber `json:"buildingMasterId"`

		DelegateImgBuilding flexInt            `json:"delegateImgBuilding"`
		DelegateImg         flexInt            `json:"delegateImg"`
		PropertyImages      flexList[ImageRef] `json:"propertyImages"`
		Images              flexList[ImageRef] `json:"images"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = RawListing{
		PropertyPrice:       w.PropertyPrice.int64(),
		ExclusiveSize:       w.ExclusiveSize.v,
		Area1Name:           string(w.Area1Name),
		Area2Name:           string(w.Area2Name),
		Area3Name:           string(w.Area3Name),
		Area4:               string(w.Area4),
		JSONTraffic:         w.JSONTraffic,
		TrafficDataStr:      string(w.TrafficDataStr),
		SupplierID:          string(w.SupplierID),
		BuildingID:          string(w.BuildingID),
		PropertyID:          string(w.PropertyID),
		BuildingMasterID:    string(w.BuildingMasterID),
		DelegateImgBuilding: w.DelegateImgBuilding.int(),
		DelegateImg:         w.DelegateImg.int(),
		PropertyImages:      w.PropertyImages,
		Images:              w.Images,
	}
	return nil
}

func (t *TransitOption) UnmarshalJSON(b []byte) error {
	var w struct {
		StationName         stringNumber `json:"station_name"`
		TransportMinStation flexInt      `json:"transport_min_station"`
		BusInfo             stringNumber `json:"bus_info"`
		TransportMinBus     flexInt      `json:"transport_min_bus"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*t = TransitOption{
		StationName:         string(w.StationName),
		TransportMinStation: w.TransportMinStation.int(),
		BusInfo:             string(w.BusInfo),
		TransportMinBus:     w.TransportMinBus.int(),
	}
	return nil
}

func (r *ImageRef) UnmarshalJSON(b []byte) error {
	var w struct {
		Number   flexInt      `json:"number"`
		Category stringNumber `json:"category"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = ImageRef{Number: w.Number.int(), Category: string(w.Category)}
	return nil
}

// stringNumber accepts string or number JSON and stores as string.
// Anything else decodes to the empty string.
type stringNumber string

func (s *stringNumber) UnmarshalJSON(b []byte) error {
	*s = ""
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		*s = stringNumber(str)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var num json.Number
		if err := json.Unmarshal(b, &num); err != nil {
			return nil
		}
		*s = stringNumber(num.String())
	}
	return nil
}

// flexFloat is a nullable number that also accepts numeric strings.
// Unparseable input decodes to null rather than failing the record.
type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	f.v = nil
	var s stringNumber
	_ = s.UnmarshalJSON(b)
	str := strings.TrimSpace(string(s))
	if str == "" {
		return nil
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.v = &v
	return nil
}

// flexInt is a flexFloat truncated toward zero.
type flexInt struct{ flexFloat }

func (f flexInt) int64() *int64 {
	if f.v == nil || math.Abs(*f.v) > math.MaxInt64/2 {
		return nil
	}
	n := int64(*f.v)
	return &n
}

func (f flexInt) int() *int {
	n := f.int64()
	if n == nil || *n > math.MaxInt32 || *n < math.MinInt32 {
		return nil
	}
	i := int(*n)
	return &i
}

// flexList decodes a JSON array element by element, dropping elements that
// fail to decode. Non-array input yields a nil list.
type flexList[T any] []T

func (l *flexList[T]) UnmarshalJSON(b []byte) error {
	*l = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(b, &elems); err != nil {
		return nil
	}
	out := make(flexList[T], 0, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			continue
		}
		var v T
		if err := json.Unmarshal(e, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	*l = out
	return nil
}
