package core

import "math"

// Physical constants shared by the orbit and geometry layers. Distances are
// kilometres, angles radians unless a name says otherwise.
const (
	// EarthRadiusKm is the mean Earth radius.
	EarthRadiusKm = 6371.0

	// EarthGMKm3S2 is the gravitational parameter GM in km³/s².
	EarthGMKm3S2 = 3.986e5

	// EarthJ2 is the second zonal harmonic driving RAAN drift.
	EarthJ2 = 1.08263e-3

	// EarthRotationRadS is the sidereal rotation rate in rad/s.
	EarthRotationRadS = 7.292115e-5
)

// Vec3 is a geocentric vector in kilometres (or a unit direction).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns v scaled to unit length; the zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Clamp bounds x to [lo, hi]. Every asin/acos call site routes its argument
// through this so floating-point overshoot can never produce NaN.
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// LookAngles is a topocentric observation of a satellite from a station.
type LookAngles struct {
	ElevationDeg float64
	AzimuthDeg   float64
	RangeKm      float64
}

// LookAnglesTo computes elevation, azimuth, and slant range of a satellite
// as seen from a ground station, both given in a common geocentric frame.
// The local basis at the station is Up (radial), East, North; elevation is
// the asin of the radial component over range, azimuth the atan2 of east
// over north, normalised to [0°,360°).
func LookAnglesTo(station, satellite Vec3) LookAngles {
	up := station.Normalized()

	// East is the horizontal direction of increasing longitude; at the poles
	// the cross product degenerates and we fall back to the x-axis.
	east := Vec3{X: -station.Y, Y: station.X, Z: 0}
	if east.Norm() == 0 {
		east = Vec3{X: 1, Y: 0, Z: 0}
	}
	east = east.Normalized()
	north := Vec3{
		X: up.Y*east.Z - up.Z*east.Y,
		Y: up.Z*east.X - up.X*east.Z,
		Z: up.X*east.Y - up.Y*east.X,
	}

	rel := satellite.Sub(station)
	rng := rel.Norm()
	if rng == 0 {
		return LookAngles{ElevationDeg: 90, AzimuthDeg: 0, RangeKm: 0}
	}

	vertical := rel.Dot(up)
	elev := math.Asin(Clamp(vertical/rng, -1, 1)) * 180 / math.Pi

	az := math.Atan2(rel.Dot(east), rel.Dot(north)) * 180 / math.Pi
	if az < 0 {
		az += 360
	}

	return LookAngles{ElevationDeg: elev, AzimuthDeg: az, RangeKm: rng}
}

// SlantRangeKm returns the station-to-satellite distance for a satellite at
// altKm seen at elevation elevDeg, from the law-of-cosines closed form
// -Re·sin(el) + sqrt((Re·sin el)² + alt² + 2·Re·alt).
func SlantRangeKm(elevDeg, altKm float64) float64 {
	sinEl := math.Sin(elevDeg * math.Pi / 180)
	re := EarthRadiusKm
	return -re*sinEl + math.Sqrt(re*re*sinEl*sinEl+altKm*altKm+2*re*altKm)
}

// MinLinkDot returns the dot-product threshold for a satellite-to-satellite
// link at orbital radius rOrbit whose chord must stay above the shell at
// rMin: 2·(rMin/rOrbit)² − 1. When rMin >= rOrbit no chord can clear the
// shell and the threshold collapses to 1 (no link passes).
func MinLinkDot(rMin, rOrbit float64) float64 {
	if rOrbit <= 0 || rMin >= rOrbit {
		return 1
	}
	ratio := rMin / rOrbit
	return 2*ratio*ratio - 1
}

// HasLineOfSight reports whether the straight segment between p1 and p2
// clears the sphere of radius shellKm around the origin. Used as an
// independent cross-check of the MinLinkDot shortcut.
func HasLineOfSight(p1, p2 Vec3, shellKm float64) bool {
	v := p2.Sub(p1)
	a := v.Dot(v)
	if a == 0 {
		return p1.Dot(p1) > shellKm*shellKm
	}

	// Closest point on the segment to the origin: t* minimises |p1 + t v|².
	t := Clamp(-p1.Dot(v)/a, 0, 1)
	closest := p1.Add(v.Scale(t))
	return closest.Dot(closest) > shellKm*shellKm
}

// UnitVectorFromLatLon converts geocentric latitude/longitude (degrees) to a
// unit position vector.
func UnitVectorFromLatLon(latDeg, lonDeg float64) Vec3 {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	return Vec3{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

// NormalizeLonDeg wraps a longitude into (-180°,180°].
func NormalizeLonDeg(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon > 180 {
		lon -= 360
	} else if lon <= -180 {
		lon += 360
	}
	return lon
}
