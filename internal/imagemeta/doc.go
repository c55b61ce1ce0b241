// Package imagemeta reads EXIF metadata from downloaded images.
//
// Photos published on a site often still carry the camera's EXIF block:
// GPS coordinates, device serial numbers, the author's name or the editing
// software. The downloader passes JPEG bodies through Inspect so that such
// metadata is surfaced in the crawl log and the crawl report.
package imagemeta
