package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Pi2 is a full turn. All angles in this module are radians in [0, Pi2).
const Pi2 = 2 * math.Pi

// Normalize wraps any angle into [0, Pi2).
func Normalize(angle float64) float64 {
	a := math.Mod(angle, Pi2)
	if a < 0 {
		a += Pi2
	}
	if a >= Pi2 {
		a = 0
	}
	return a
}

func Add(a, b float64) float64 { return Normalize(a + b) }

// Difference is the counter-clockwise turn from b to a.
func Difference(a, b float64) float64 { return Normalize(a - b) }

func Opposite(angle float64) float64 { return Normalize(angle + math.Pi) }

func Complementary(angle float64) float64 { return Normalize(Pi2 - angle) }

// Distance is the shorter way around the circle between a and b, in [0, Pi].
func Distance(a, b float64) float64 {
	d := Difference(a, b)
	return math.Min(d, Pi2-d)
}

// Atan returns the direction of v.
func Atan(v r2.Vec) float64 {
	return Normalize(math.Atan2(v.Y, v.X))
}

func FromDegrees(deg float64) float64 { return Normalize(deg * math.Pi / 180) }
func ToDegrees(angle float64) float64 { return angle * 180 / math.Pi }

// ToByte quantizes an angle to 256 steps per turn, the resolution of the compact format.
func ToByte(angle float64) byte {
	return byte(int(math.Round(Normalize(angle)*256/Pi2)) & 0xff)
}

func FromByte(b byte) float64 {
	return float64(b) * Pi2 / 256
}
