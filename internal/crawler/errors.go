package crawler

import "errors"

// Crawler errors.
var (
	// ErrOriginUnreachable is returned by Crawl when the starting page
	// cannot be fetched at all.
	ErrOriginUnreachable = errors.New("unable to connect to origin")

	// ErrUnexpectedStatus is returned when a response is not 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrImageTooLarge is returned when an image exceeds the size limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")

	// ErrNilURL is returned when a download is requested without a URL.
	ErrNilURL = errors.New("nil image URL")
)
