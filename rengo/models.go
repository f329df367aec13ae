package rengo

// RawListing is one property record as served by the search-properties
// endpoint. Every field may be missing; consumers must default.
type RawListing struct {
	PropertyPrice *int64   `json:"propertyPrice"`
	ExclusiveSize *float64 `json:"exclusiveSize"`

	Area1Name string `json:"area1Name"`
	Area2Name string `json:"area2Name"`
	Area3Name string `json:"area3Name"`
	Area4     string `json:"area4"`

	// JSONTraffic and TrafficDataStr describe the same access data; the
	// structured list wins when it yields anything.
	JSONTraffic    []TransitOption `json:"jsonTraffic"`
	TrafficDataStr string          `json:"trafficDataStr"`

	SupplierID       string `json:"supplierId"`
	BuildingID       string `json:"buildingId"`
	PropertyID       string `json:"propertyId"`
	BuildingMasterID string `json:"buildingMasterId"`

	DelegateImgBuilding *int       `json:"delegateImgBuilding"`
	DelegateImg         *int       `json:"delegateImg"`
	PropertyImages      []ImageRef `json:"propertyImages"`
	Images              []ImageRef `json:"images"`
}

// TransitOption is either a station pair or a bus-stop pair.
type TransitOption struct {
	StationName         string `json:"station_name"`
	TransportMinStation *int   `json:"transport_min_station"`
	BusInfo             string `json:"bus_info"`
	TransportMinBus     *int   `json:"transport_min_bus"`
}

// ImageRef points at one stored photo of a listing.
type ImageRef struct {
	Number   *int   `json:"number"`
	Category string `json:"category"`
}

const (
	CategoryExterior = "exterior"
	CategoryLayout   = "layout"
)
