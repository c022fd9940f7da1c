package lcdif

import (
	"fmt"

	"tinygo.org/x/drivers"
)

// Orientation is the fixed clockwise rotation applied between the logical
// (application) coordinate system and the native panel scan order.
type Orientation uint8

// Supported orientations.
const (
	Normal     Orientation = iota // 0°
	Rotated90                     // 90° clockwise
	Rotated180                    // 180°
	Rotated270                    // 270° clockwise
)

func (o Orientation) String() string {
	switch o {
	case Normal:
		return "Normal"
	case Rotated90:
		return "Rotated90"
	case Rotated180:
		return "Rotated180"
	case Rotated270:
		return "Rotated270"
	}
	return fmt.Sprintf("Orientation(%d)", uint8(o))
}

// Valid reports whether o is one of the four supported orientations.
func (o Orientation) Valid() bool {
	return o <= Rotated270
}

// Degrees returns the clockwise rotation angle.
func (o Orientation) Degrees() int {
	return int(o) * 90
}

// SwapsAxes reports whether logical width maps to panel height.
func (o Orientation) SwapsAxes() bool {
	return o == Rotated90 || o == Rotated270
}

// MapPoint returns the absolute panel (col, row) of the pixel at region-local
// (i, j) of a region placed at logical (x, y), on a panel of native size
// pw×ph.
func (o Orientation) MapPoint(x, y, i, j, pw, ph int) (col, row int) {
	switch o {
	case Rotated90:
		return pw - 1 - y - j, x + i
	case Rotated180:
		return pw - 1 - x - i, ph - 1 - y - j
	case Rotated270:
		return y + j, ph - 1 - x - i
	}
	return x + i, y + j
}

// steps returns the panel pixel index delta for one step along a source row
// and for one step down a source column.
func (o Orientation) steps(pw int) (pix, row int) {
	switch o {
	case Rotated90:
		return pw, -1
	case Rotated180:
		return -1, -pw
	case Rotated270:
		return -pw, 1
	}
	return 1, pw
}

// OrientationFromRotation converts a tinygo display rotation.
func OrientationFromRotation(r drivers.Rotation) (Orientation, error) {
	switch r {
	case drivers.Rotation0:
		return Normal, nil
	case drivers.Rotation90:
		return Rotated90, nil
	case drivers.Rotation180:
		return Rotated180, nil
	case drivers.Rotation270:
		return Rotated270, nil
	}
	return Normal, fmt.Errorf("lcdif: unsupported rotation %d: %w", r, ErrNotSupported)
}

// Rotation returns the tinygo display rotation equivalent to o.
func (o Orientation) Rotation() drivers.Rotation {
	switch o {
	case Rotated90:
		return drivers.Rotation90
	case Rotated180:
		return drivers.Rotation180
	case Rotated270:
		return drivers.Rotation270
	}
	return drivers.Rotation0
}
