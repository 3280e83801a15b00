package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
)

// ErrUnknownSensor is returned for a field/sensor pair missing from the profiles.
var ErrUnknownSensor = errors.New("unknown field or sensor")

// FieldRegistry holds the field profiles loaded at startup.
type FieldRegistry struct {
	mu     sync.RWMutex
	fields map[string]entities.Field
}

func NewFieldRegistry(fields map[string]entities.Field) *FieldRegistry {
	cp := make(map[string]entities.Field, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &FieldRegistry{fields: cp}
}

// LoadFieldRegistry reads the JSON profiles file at path.
func LoadFieldRegistry(path string) (*FieldRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fields, err := parseFields(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewFieldRegistry(fields), nil
}

func (r *FieldRegistry) Lookup(fieldID, sensorID string) (entities.Field, entities.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fields[fieldID]
	if !ok {
		return entities.Field{}, entities.Sensor{}, fmt.Errorf("%w: field %s", ErrUnknownSensor, fieldID)
	}
	s := f.GetSensor(sensorID)
	if s == nil {
		return entities.Field{}, entities.Sensor{}, fmt.Errorf("%w: sensor %s/%s", ErrUnknownSensor, fieldID, sensorID)
	}
	return f, *s, nil
}

func (r *FieldRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fields)
}

// parseFields accepts numbers or numeric strings (comma or dot decimals) and
// both "flow_lpm" and "flow_rate" for the line flow.
func parseFields(raw []byte) (map[string]entities.Field, error) {
	var m map[string]map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	out := make(map[string]entities.Field, len(m))
	for fid, rec := range m {
		f := entities.Field{
			ID:             fid,
			CropType:       toString(rec["crop"]),
			AreaHectares:   toF64(rec["area_ha"]),
			MinMoisture:    toF64(rec["min_moisture"]),
			TargetMoisture: toF64(rec["target_moisture"]),
			MaxMoisture:    toF64(rec["max_moisture"]),
			Soil: entities.SoilProfile{
				Type:          toString(rec["soil"]),
				FieldCapacity: toF64(rec["field_capacity"]),
				WiltingPoint:  toF64(rec["wilting_point"]),
			},
		}
		if f.Soil.AvailableWater() <= 0 {
			return nil, fmt.Errorf("field %s: field_capacity must exceed wilting_point", fid)
		}

		list, _ := rec["sensors"].([]any)
		for _, item := range list {
			srec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			s := entities.Sensor{
				FieldID:   fid,
				ID:        toString(srec["id"]),
				Latitude:  toF64(srec["latitude"]),
				Longitude: toF64(srec["longitude"]),
			}
			if s.ID == "" {
				return nil, fmt.Errorf("sensor without id in field %s", fid)
			}
			flow := toF64(srec["flow_lpm"])
			if flow == 0 {
				flow = toF64(srec["flow_rate"])
			}
			s.FlowLpm = flow
			f.Sensors = append(f.Sensors, s)
		}
		out[fid] = f
	}
	return out, nil
}

func toF64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64); err == nil {
			return f
		}
	}
	return 0
}

func toString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
