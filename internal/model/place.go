package model

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Place is a pickup or drop-off point. The API sends either a free-text
// address or a {lat, lng} object, sometimes with a name.
type Place struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
}

func (p Place) HasCoordinates() bool {
	return p.Lat != 0 || p.Lng != 0
}

func (p Place) String() string {
	if p.Name != "" {
		return p.Name
	}
	if p.HasCoordinates() {
		b, _ := json.Marshal(p)
		return string(b)
	}
	return ""
}

func (p *Place) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = Place{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Place{Name: s}
		return nil
	}
	type plain Place
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Place(v)
	return nil
}

// MarshalJSON sends a bare string when no coordinates are known.
func (p Place) MarshalJSON() ([]byte, error) {
	if !p.HasCoordinates() {
		return json.Marshal(p.Name)
	}
	type plain Place
	return json.Marshal(plain(p))
}
