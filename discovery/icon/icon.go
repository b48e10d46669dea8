// Package icon provides the [Material Design Icons] used by the converter
// panel.
//
// [Material Design Icons]: https://pictogrammers.com/library/mdi/
package icon

// Icon names
const (
	Calculator     = "mdi:calculator"
	FormTextbox    = "mdi:form-textbox"
	Ruler          = "mdi:ruler"
	SwapHorizontal = "mdi:swap-horizontal"
	RayStart       = "mdi:ray-start"
	RayEnd         = "mdi:ray-end"
)

// Icon aliases
const (
	Input     = FormTextbox
	Source    = RayStart
	Target    = RayEnd
	Swap      = SwapHorizontal
	Calculate = Calculator
	Result    = Ruler
)
