// Package length converts quantities between a fixed set of length units.
//
// All conversions go through the metre: a quantity is scaled to metres by the
// factor of its unit and back out by the factor of the target unit. The unit
// set is closed; a [Unit] outside of it is never given a default factor.
package length

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

// Unit is a unit of length.
type Unit uint8

const (
	Metre Unit = iota
	Centimetre
	Millimetre
	Kilometre
	Mile
	Foot

	numUnits
)

// ErrUnknownUnit is returned when a name does not match any [Unit].
var ErrUnknownUnit = errors.New("unknown unit")

// metres per unit
var factors = [numUnits]float64{
	Metre:      1.0,
	Centimetre: 0.01,
	Millimetre: 0.001,
	Kilometre:  1000.0,
	Mile:       1609.34,
	Foot:       0.3048,
}

var names = [numUnits]string{
	Metre:      "Metre",
	Centimetre: "Centimetre",
	Millimetre: "Millimetre",
	Kilometre:  "Kilometre",
	Mile:       "Mile",
	Foot:       "Foot",
}

var symbols = [numUnits]string{
	Metre:      "m",
	Centimetre: "cm",
	Millimetre: "mm",
	Kilometre:  "km",
	Mile:       "mi",
	Foot:       "ft",
}

// aliases maps the folded spellings accepted by ParseUnit.
var aliases = func() map[string]Unit {
	m := make(map[string]Unit, 4*numUnits)
	fold := cases.Fold()
	for u := Unit(0); u < numUnits; u++ {
		name := fold.String(names[u])
		m[name] = u
		m[name+"s"] = u
		m[symbols[u]] = u
	}
	for s, u := range map[string]Unit{
		"meter":       Metre,
		"meters":      Metre,
		"centimeter":  Centimetre,
		"centimeters": Centimetre,
		"millimeter":  Millimetre,
		"millimeters": Millimetre,
		"kilometer":   Kilometre,
		"kilometers":  Kilometre,
		"feet":        Foot,
	} {
		m[s] = u
	}
	return m
}()

// Units returns every unit in display order.
func Units() []Unit {
	u := make([]Unit, numUnits)
	for i := range u {
		u[i] = Unit(i)
	}
	return u
}

// ParseUnit returns the Unit named by s. The display name, its plural, the
// symbol and the US spelling are accepted regardless of case.
func ParseUnit(s string) (Unit, error) {
	// a Caser is stateful, so each call gets its own
	if u, ok := aliases[cases.Fold().String(s)]; ok {
		return u, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownUnit, s)
}

// Valid reports whether u is a member of the unit set.
func (u Unit) Valid() bool {
	return u < numUnits
}

// Factor returns the number of metres in one u. Factor panics if u is not valid.
func (u Unit) Factor() float64 {
	if !u.Valid() {
		panic(fmt.Sprintf("length: unknown unit %d", uint8(u)))
	}
	return factors[u]
}

// String returns the display name of u.
func (u Unit) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Unit(%d)", uint8(u))
	}
	return names[u]
}

// Symbol returns the abbreviated name of u, e.g. "km".
func (u Unit) Symbol() string {
	if !u.Valid() {
		return ""
	}
	return symbols[u]
}

// AppendText implements [encoding.TextAppender] using the display name of u.
func (u Unit) AppendText(b []byte) ([]byte, error) {
	if !u.Valid() {
		return b, fmt.Errorf("%w %d", ErrUnknownUnit, uint8(u))
	}
	return append(b, names[u]...), nil
}

// MarshalText implements [encoding.TextMarshaler].
func (u Unit) MarshalText() ([]byte, error) {
	return u.AppendText(nil)
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseUnit].
func (u *Unit) UnmarshalText(data []byte) (err error) {
	*u, err = ParseUnit(string(data))
	return
}
