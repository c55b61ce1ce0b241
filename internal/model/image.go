package model

import "net/http"

// DownloadOutcome is the result of one image download attempt.
type DownloadOutcome struct {
	// ImageURL is the absolute URL that was requested.
	ImageURL string `json:"image_url"`

	// PageURL is the page the image was referenced from.
	PageURL string `json:"page_url,omitempty"`

	// Path is the saved file path. Empty on failure.
	Path string `json:"path,omitempty"`

	// Success is true when the file was written.
	Success bool `json:"success"`

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Bytes is the number of bytes written.
	Bytes int64 `json:"bytes,omitempty"`

	// Err is the failure cause.
	Err error `json:"-"`

	// Reason is Err rendered as text so it survives serialization.
	Reason string `json:"reason,omitempty"`

	// Metadata holds EXIF information for JPEG images, when present.
	Metadata *ImageMetadata `json:"metadata,omitempty"`
}

// Failed builds a failed outcome for imageURL.
func Failed(imageURL string, err error) DownloadOutcome {
	o := DownloadOutcome{ImageURL: imageURL, Err: err}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}

// Saved builds a successful outcome.
func Saved(imageURL, path string, size int64) DownloadOutcome {
	return DownloadOutcome{
		ImageURL:   imageURL,
		Path:       path,
		Success:    true,
		StatusCode: http.StatusOK,
		Bytes:      size,
	}
}

// ImageMetadata is the subset of EXIF data worth reporting.
type ImageMetadata struct {
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Software     string `json:"software,omitempty"`
	DateTime     string `json:"date_time,omitempty"`
	Artist       string `json:"artist,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`

	// HasGPS is true when any GPS coordinate tag was found.
	HasGPS bool `json:"has_gps"`

	// Latitude and Longitude are the formatted GPS values, if present.
	Latitude  string `json:"latitude,omitempty"`
	Longitude string `json:"longitude,omitempty"`
}

// IsEmpty reports whether no interesting tag was found.
func (m *ImageMetadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return *m == ImageMetadata{}
}

// IsSensitive reports whether the metadata can locate or identify the author.
func (m *ImageMetadata) IsSensitive() bool {
	if m == nil {
		return false
	}
	return m.HasGPS || m.SerialNumber != "" || m.Artist != ""
}
