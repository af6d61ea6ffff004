package extraction

// FormFieldType represents the type of a form field
type FormFieldType string

const (
	FormFieldTypeText      FormFieldType = "text"
	FormFieldTypeCheckbox  FormFieldType = "checkbox"
	FormFieldTypeRadio     FormFieldType = "radio"
	FormFieldTypeSelect    FormFieldType = "select"
	FormFieldTypeButton    FormFieldType = "button"
	FormFieldTypeSignature FormFieldType = "signature"
	FormFieldTypeUnknown   FormFieldType = "unknown"
)

// Coordinate represents a point in PDF coordinate space
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox represents a rectangular area in PDF coordinate space
type BoundingBox struct {
	LowerLeft  Coordinate `json:"lower_left"`
	UpperRight Coordinate `json:"upper_right"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
}

// newBoundingBox builds a normalized box from two arbitrary corners
func newBoundingBox(x0, y0, x1, y1 float64) BoundingBox {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return BoundingBox{
		LowerLeft:  Coordinate{X: x0, Y: y0},
		UpperRight: Coordinate{X: x1, Y: y1},
		Width:      x1 - x0,
		Height:     y1 - y0,
	}
}

// Rect is an axis-aligned rectangle with a top-left origin, in points.
// X grows to the right and Y grows downwards, matching raster space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Widget is a single form field widget annotation found on a page
type Widget struct {
	// ID is the widget's object number as a decimal string. Widgets stored
	// inline in the page's /Annots array get a positional identifier.
	ID           string        `json:"id"`
	ObjectNumber int           `json:"object_number,omitempty"`
	Name         string        `json:"name,omitempty"`
	Type         FormFieldType `json:"type"`
	Value        *string       `json:"value"`
	Bounds       BoundingBox   `json:"bounds"`

	// Rect is Bounds relative to the page's visible box, top-left origin
	Rect Rect `json:"rect"`
}

// PageLayout describes the widgets of one page and the page's visible area
type PageLayout struct {
	PageCount int         `json:"page_count"`
	Box       BoundingBox `json:"box"`
	Widgets   []Widget    `json:"widgets"`
}

// Width returns the width of the visible page area in points
func (p *PageLayout) Width() float64 { return p.Box.Width }

// Height returns the height of the visible page area in points
func (p *PageLayout) Height() float64 { return p.Box.Height }
