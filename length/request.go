package length

import (
	"encoding/json"
	"math"
)

// Request is a single conversion asked for by a user. Input is the raw text
// as it was typed.
type Request struct {
	Input string `json:"input"`
	From  Unit   `json:"from"`
	To    Unit   `json:"to"`
}

// Do validates r.Input and converts it.
func (r Request) Do() Outcome {
	q, err := ValidateQuantity(r.Input)
	if err != nil {
		return Outcome{Request: r, Err: err.(ValidationError)}
	}
	return Outcome{Request: r, Value: Convert(q, r.From, r.To)}
}

// Swapped returns r with From and To exchanged.
func (r Request) Swapped() Request {
	r.From, r.To = Swap(r.From, r.To)
	return r
}

// Outcome is the result of a [Request]. Err is zero on success, in which
// case Value holds the quantity in r.To.
type Outcome struct {
	Request
	Value float64
	Err   ValidationError
}

// OK reports whether the conversion succeeded.
func (o Outcome) OK() bool {
	return o.Err == 0
}

// String returns "<input> <from> = <value> <to>", or the error message if
// validation failed.
func (o Outcome) String() string {
	if !o.OK() {
		return o.Err.Error()
	}
	return o.Input + " " + o.From.String() + " = " + FormatResult(o.Value, o.To)
}

type outcomeJSON struct {
	Input   string   `json:"input"`
	From    Unit     `json:"from"`
	To      Unit     `json:"to"`
	Value   *float64 `json:"value,omitempty"`
	Result  string   `json:"result,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
}

// MarshalJSON implements [json.Marshaler]. The value is omitted when the
// conversion overflowed, since JSON has no infinity.
func (o Outcome) MarshalJSON() ([]byte, error) {
	v := outcomeJSON{
		Input: o.Input,
		From:  o.From,
		To:    o.To,
	}
	if o.OK() {
		if !math.IsInf(o.Value, 0) && !math.IsNaN(o.Value) {
			v.Value = &o.Value
		}
		v.Result = o.String()
	} else {
		v.Error = o.Err.Kind()
		v.Message = o.Err.Error()
	}
	return json.Marshal(&v)
}
