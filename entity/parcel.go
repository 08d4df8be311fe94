package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Parcel is a grid coordinate a scene claims ownership of.
//
// On the wire a parcel is the pointer string "x,y"; that string form is
// what manifests, snapshot indexes and pointer queries carry.
type Parcel struct {
	X int32
	Y int32
}

func (p Parcel) String() string {
	return fmt.Sprintf("%d,%d", p.X, p.Y)
}

// ParseParcel parses a pointer string of the form "x,y".
func ParseParcel(s string) (Parcel, error) {
	left, right, ok := strings.Cut(s, ",")
	if !ok {
		return Parcel{}, fmt.Errorf("entity: malformed parcel %q", s)
	}
	x, err := strconv.ParseInt(strings.TrimSpace(left), 10, 32)
	if err != nil {
		return Parcel{}, fmt.Errorf("entity: malformed parcel %q: %w", s, err)
	}
	y, err := strconv.ParseInt(strings.TrimSpace(right), 10, 32)
	if err != nil {
		return Parcel{}, fmt.Errorf("entity: malformed parcel %q: %w", s, err)
	}
	return Parcel{X: int32(x), Y: int32(y)}, nil
}

func (p Parcel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Parcel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseParcel(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PointerStrings converts parcels to their pointer string form,
// preserving order.
func PointerStrings(parcels []Parcel) []string {
	out := make([]string, 0, len(parcels))
	for _, p := range parcels {
		out = append(out, p.String())
	}
	return out
}
