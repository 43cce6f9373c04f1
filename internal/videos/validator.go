package videos

// MaxUploadSize is the largest accepted upload, in bytes.
const MaxUploadSize int64 = 100 * 1024 * 1024

// MP4MediaType is the media type stored objects are normalised to.
const MP4MediaType = "video/mp4"

var allowedMediaTypes = map[string]struct{}{
	MP4MediaType:       {},
	"video/quicktime":  {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
}

// IsSizeValid reports whether size is within MaxUploadSize, inclusive.
func IsSizeValid(size int64) bool {
	return size <= MaxUploadSize
}

// IsVideoFile reports whether the declared media type is an accepted container.
// The check trusts the declared type; it does not sniff content.
func IsVideoFile(mediaType string) bool {
	_, ok := allowedMediaTypes[mediaType]
	return ok
}

// IsMP4File reports whether the declared media type needs no transcoding.
func IsMP4File(mediaType string) bool {
	return mediaType == MP4MediaType
}
