package imagemeta

import (
	"errors"
	"fmt"
	"path"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/spider/internal/model"
)

// ErrNoMetadata is returned when the image carries no EXIF block.
var ErrNoMetadata = errors.New("no EXIF metadata")

// exifExtensions lists the downloaded image types that can carry EXIF.
var exifExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// Supports reports whether name (a file name or URL path) has an extension
// whose format carries EXIF metadata.
func Supports(name string) bool {
	return exifExtensions[strings.ToLower(path.Ext(name))]
}

// Inspect extracts the interesting EXIF tags from raw image bytes.
// It returns ErrNoMetadata when the data has no EXIF block.
func Inspect(data []byte) (*model.ImageMetadata, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return nil, ErrNoMetadata
		}
		return nil, fmt.Errorf("failed to locate EXIF block: %w", err)
	}
	if rawExif == nil {
		return nil, ErrNoMetadata
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EXIF block: %w", err)
	}

	return fromTags(entries), nil
}

// fromTags maps flattened EXIF tags onto ImageMetadata.
// The first occurrence of a tag wins; IFD1 (thumbnail) repeats IFD0 values.
func fromTags(entries []exif.ExifTag) *model.ImageMetadata {
	meta := &model.ImageMetadata{}

	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = strings.TrimSpace(v)
		}
	}

	for _, entry := range entries {
		value := entry.Formatted

		switch entry.TagName {
		case "Make":
			set(&meta.Make, value)
		case "Model":
			set(&meta.Model, value)
		case "Software", "ProcessingSoftware", "HostComputer":
			set(&meta.Software, value)
		case "DateTimeOriginal", "DateTime", "DateTimeDigitized":
			set(&meta.DateTime, value)
		case "Artist", "Author", "XPAuthor", "Copyright":
			set(&meta.Artist, value)
		case "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
			set(&meta.SerialNumber, value)
		case "GPSLatitude":
			meta.HasGPS = true
			set(&meta.Latitude, value)
		case "GPSLongitude":
			meta.HasGPS = true
			set(&meta.Longitude, value)
		case "GPSLatitudeRef", "GPSLongitudeRef", "GPSAltitude", "GPSTimeStamp":
			meta.HasGPS = true
		}
	}

	return meta
}
