package entities

type SoilProfile struct {
	Type          string  `json:"type"` // clay, sandy, loam, silt
	FieldCapacity float64 `json:"field_capacity"`
	WiltingPoint  float64 `json:"wilting_point"`
}

// AvailableWater is the moisture span plants can draw on, in percentage points.
func (s SoilProfile) AvailableWater() float64 {
	return s.FieldCapacity - s.WiltingPoint
}
