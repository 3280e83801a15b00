package entities

// Sensor represents a single soil probe in the field together with the
// irrigation line it controls.
type Sensor struct {
	FieldID   string  `json:"field_id"`
	ID        string  `json:"id"` // unique sensor identifier
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	FlowLpm   float64 `json:"flow_rate,omitempty"` // line flow [L/min]
}
