package viewer

// DataDim tags the dimensionality of an exported data buffer.
type DataDim string

const (
	Data0D DataDim = "Data0D"
	Data1D DataDim = "Data1D"
)

// Axis carries the coordinate values and labeling for one axis of an
// exported data buffer.
type Axis struct {
	Label string    `json:"label"`
	Units string    `json:"units"`
	Data  []float64 `json:"data"`
}

// DataFromPlugins is one labeled data buffer produced by a detector,
// one inner slice per channel.
type DataFromPlugins struct {
	Name     string      `json:"name"`
	Dim      DataDim     `json:"dim"`
	Data     [][]float64 `json:"data"`
	Axes     []Axis      `json:"axes,omitempty"`
	Averages int         `json:"averages"` // acquisition cycles averaged into Data
}

// DataToExport is the complete result of one grab: a named set of data
// buffers ready for the host to consume.
type DataToExport struct {
	Name string            `json:"name"`
	Data []DataFromPlugins `json:"data"`
}

// Empty reports whether the export carries no data buffers, which marks
// a skipped acquisition cycle.
func (e *DataToExport) Empty() bool {
	return e == nil || len(e.Data) == 0
}

// Param is a single named setting committed by the host.
type Param struct {
	Name  string
	Value any
}
