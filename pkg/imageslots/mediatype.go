package imageslots

import (
	"path"
	"strings"
)

// allowedTypes is the closed set of accepted image content types.
var allowedTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// knownExtensions maps file extensions back to content types. Retrieval
// derives its Content-Type from the stored key through this table.
var knownExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// AllowedType reports whether the declared content type is an accepted
// image type. Parameters (e.g. "; charset=") are not stripped: the declared
// type must match exactly.
func AllowedType(contentType string) bool {
	_, ok := allowedTypes[contentType]
	return ok
}

// InferExtension picks the file extension for an upload: the declared
// filename's extension when it is a known image extension, otherwise the
// extension of the declared content type, defaulting to ".png" when neither
// is recognized.
func InferExtension(filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if _, ok := knownExtensions[ext]; ok {
		return ext
	}
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return ".png"
}

// ContentTypeForKey derives the content type to serve for a stored object
// key from its extension. Unknown extensions fall back to a generic binary
// type rather than failing the read.
func ContentTypeForKey(key string) string {
	if ct, ok := knownExtensions[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ValidateUserID rejects empty identifiers and anything that could escape
// the user's namespace when embedded in a path.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidUserID
	}
	if strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return ErrInvalidUserID
	}
	return nil
}
