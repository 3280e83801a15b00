package entities

// Field represents a tract of land growing a particular crop on a known soil,
// with the moisture thresholds its sensors are judged against.
type Field struct {
	ID             string      `json:"id"`
	CropType       string      `json:"crop"` // e.g. "corn", "wheat"
	Soil           SoilProfile `json:"soil"`
	AreaHectares   float64     `json:"area_ha"`
	MinMoisture    float64     `json:"min_moisture"`    // %
	TargetMoisture float64     `json:"target_moisture"` // %
	MaxMoisture    float64     `json:"max_moisture"`    // %
	Sensors        []Sensor    `json:"sensors"`
}

func (f *Field) GetSensor(sensorID string) *Sensor {
	for i := range f.Sensors {
		if f.Sensors[i].ID == sensorID {
			return &f.Sensors[i]
		}
	}
	return nil
}
