package draw

import "math"

// heartSegments is the number of outline points generated for a heart.
const heartSegments = 48

// Heart returns the outline of a heart centred on (cx, cy) spanning roughly
// width pixels across. Pixels are twice as tall as wide in terminal cells,
// so height is given separately. The result reuses buf when it is large enough.
func Heart(cx, cy, width, height float64, buf []Point) []Point {
	if cap(buf) < heartSegments {
		buf = make([]Point, heartSegments)
	}
	pts := buf[:heartSegments]
	for i := range pts {
		t := 2 * math.Pi * float64(i) / heartSegments
		// Classic heart curve: x in [-16,16], y in about [-17,12].
		x := 16 * math.Pow(math.Sin(t), 3)
		y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)
		pts[i] = Point{
			X: cx + x/32*width,
			Y: cy - y/29*height,
		}
	}
	return pts
}
