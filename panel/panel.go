// Package panel holds the state of a single conversion screen: the text
// typed by the user, the selected units, the last result and the current
// error. A Panel is safe for concurrent use.
package panel

import (
	"encoding/json"
	"sync"

	"github.com/lone-faerie/lenconv/length"
)

// Prompt is the result text of a panel that has not calculated anything yet.
const Prompt = "Enter a value and select units to convert"

// Panel is the state of a conversion screen.
type Panel struct {
	mu     sync.Mutex
	input  string
	source length.Unit
	target length.Unit
	result string
	err    length.ValidationError
}

// State is a snapshot of a [Panel].
type State struct {
	Input  string      `json:"input"`
	Source length.Unit `json:"source"`
	Target length.Unit `json:"target"`
	Result string      `json:"result"`
	// Error is the message of the last failed calculation, or empty.
	Error string `json:"error,omitempty"`
}

// New returns a Panel with the given units selected and no input. Invalid
// units are replaced by [length.Metre].
func New(source, target length.Unit) *Panel {
	if !source.Valid() {
		source = length.Metre
	}
	if !target.Valid() {
		target = length.Metre
	}
	return &Panel{
		source: source,
		target: target,
		result: Prompt,
	}
}

// SetInput sets the raw text to convert. The text is kept exactly as given.
func (p *Panel) SetInput(s string) {
	p.mu.Lock()
	p.input = s
	p.mu.Unlock()
}

// SetSource selects the unit converted from.
func (p *Panel) SetSource(u length.Unit) error {
	if !u.Valid() {
		return length.ErrUnknownUnit
	}
	p.mu.Lock()
	p.source = u
	p.mu.Unlock()
	return nil
}

// SetTarget selects the unit converted to.
func (p *Panel) SetTarget(u length.Unit) error {
	if !u.Valid() {
		return length.ErrUnknownUnit
	}
	p.mu.Lock()
	p.target = u
	p.mu.Unlock()
	return nil
}

// Swap exchanges the source and target units. The result is not recalculated.
func (p *Panel) Swap() {
	p.mu.Lock()
	p.source, p.target = length.Swap(p.source, p.target)
	p.mu.Unlock()
}

// Calculate converts the current input. On failure the error is recorded and
// the previous result is kept; on success the error is cleared.
func (p *Panel) Calculate() length.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	o := length.Request{Input: p.input, From: p.source, To: p.target}.Do()
	if !o.OK() {
		p.err = o.Err
		return o
	}
	p.err = 0
	p.result = o.String()
	return o
}

// State returns a snapshot of the panel.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := State{
		Input:  p.input,
		Source: p.source,
		Target: p.target,
		Result: p.result,
	}
	if p.err != 0 {
		s.Error = p.err.Error()
	}
	return s
}

// Reset restores the panel to the state returned by [New].
func (p *Panel) Reset(source, target length.Unit) {
	fresh := New(source, target)
	p.mu.Lock()
	p.input = fresh.input
	p.source, p.target = fresh.source, fresh.target
	p.result = fresh.result
	p.err = 0
	p.mu.Unlock()
}

func (p *Panel) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.State())
}
