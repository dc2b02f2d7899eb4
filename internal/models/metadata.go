package models

import "fmt"

// Metadata is the record extracted once per image. Optional fields are nil
// when the image does not carry them; absence is meaningful.
type Metadata struct {
	CapturedAt   *string  `json:"datetime_original,omitempty"`
	DeviceMake   *string  `json:"device_make,omitempty"`
	DeviceModel  *string  `json:"device_model,omitempty"`
	Software     *string  `json:"software,omitempty"`
	GPSLatitude  *float64 `json:"gps_latitude,omitempty"`
	GPSLongitude *float64 `json:"gps_longitude,omitempty"`
	ContentHash  string   `json:"file_hash,omitempty"`
	Width        int      `json:"width,omitempty"`
	Height       int      `json:"height,omitempty"`
	SizeBytes    int64    `json:"file_size,omitempty"`
}

// Dimensions renders the pixel size as WxH, or "" when unknown.
func (m Metadata) Dimensions() string {
	if m.Width == 0 && m.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// HasTimestamp reports whether a capture timestamp is present.
func (m Metadata) HasTimestamp() bool {
	return present(m.CapturedAt)
}

// HasDevice reports whether a device make or model is present.
func (m Metadata) HasDevice() bool {
	return present(m.DeviceMake) || present(m.DeviceModel)
}

// HasGPS reports whether both coordinates are present.
func (m Metadata) HasGPS() bool {
	return m.GPSLatitude != nil && m.GPSLongitude != nil
}

// HasCaptureFields reports whether a capture timestamp, device make or GPS
// latitude is present. A record with none of them reads as stripped.
func (m Metadata) HasCaptureFields() bool {
	return m.HasTimestamp() || present(m.DeviceMake) || m.GPSLatitude != nil
}

// HasAnyEmbedded reports whether any embedded capture field is present.
func (m Metadata) HasAnyEmbedded() bool {
	return m.HasTimestamp() ||
		present(m.DeviceMake) ||
		present(m.DeviceModel) ||
		m.GPSLatitude != nil ||
		m.GPSLongitude != nil ||
		present(m.Software)
}

func present(s *string) bool {
	return s != nil && *s != ""
}
