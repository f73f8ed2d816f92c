package showtime

// Format is the presentation format of a screening.
type Format string

const (
	FormatStandard Format = "Standard"
	FormatIMAX     Format = "IMAX"
	Format3D       Format = "3D"
	FormatDolby    Format = "Dolby"
	FormatXD       Format = "XD"
)

// Formats lists every format from highest to lowest priority.
var Formats = []Format{FormatIMAX, Format3D, FormatDolby, FormatXD, FormatStandard}

// Rank orders formats by classification priority; higher wins.
// Unknown values rank with Standard.
func (f Format) Rank() int {
	switch f {
	case FormatIMAX:
		return 4
	case Format3D:
		return 3
	case FormatDolby:
		return 2
	case FormatXD:
		return 1
	default:
		return 0
	}
}

// Valid reports whether f is one of the enumerated formats.
func (f Format) Valid() bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}
