package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Unit conversion factors
const (
	MsToKnots    = 1.94384    // m/s to knots
	MetersToFt   = 3.28084    // meters to feet
	FtToMeters   = 0.3048     // feet to meters
	MsToFtPerMin = 196.850394 // m/s to ft/min
)

// MagneticVariation returns the magnetic declination for a position and
// date in degrees (+East, -West). Zero is returned when the model cannot be
// evaluated, e.g. for dates outside the WMM validity window.
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altFt*FtToMeters)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}

	return mag.D()
}

// MagneticTrack converts a true track into a magnetic track in [0, 360)
func MagneticTrack(trueTrack, variation float64) float64 {
	track := math.Mod(trueTrack-variation, 360)
	if track < 0 {
		track += 360
	}
	return track
}

// KnotsFromMs converts a ground speed from m/s to knots
func KnotsFromMs(v float64) float64 { return v * MsToKnots }

// FeetFromMeters converts an altitude from meters to feet
func FeetFromMeters(m float64) float64 { return m * MetersToFt }

// FtPerMinFromMs converts a vertical rate from m/s to ft/min
func FtPerMinFromMs(v float64) float64 { return v * MsToFtPerMin }
