package metadata

import (
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// DMSToDecimal converts degrees/minutes/seconds and a hemisphere reference to
// signed decimal degrees. S and W are negative.
func DMSToDecimal(d, m, s float64, ref string) float64 {
	decimal := d + m/60 + s/3600
	switch strings.ToUpper(strings.TrimSpace(ref)) {
	case "S", "W":
		return -decimal
	}
	return decimal
}

// gpsCoordinates reads the GPS block. Both coordinates must decode.
func gpsCoordinates(x *exif.Exif) (float64, float64, bool) {
	lat, ok := coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if !ok {
		return 0, 0, false
	}
	lon, ok := coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if !ok {
		return 0, 0, false
	}
	return lat, lon, true
}

func coordinate(x *exif.Exif, field, refField exif.FieldName) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil || tag.Count < 3 {
		return 0, false
	}

	var parts [3]float64
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}

	ref := ""
	if refTag, err := x.Get(refField); err == nil {
		if s, err := refTag.StringVal(); err == nil {
			ref = strings.Trim(s, "\x00")
		}
	}

	return DMSToDecimal(parts[0], parts[1], parts[2], ref), true
}
