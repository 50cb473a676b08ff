// Package mimetype provides the static extension-to-MIME table spec §6
// describes: the ObjectStore backend consumes it to set a Content-Type on
// upload, and httpvfs consumes it to set the same header on download.
package mimetype

import "strings"

const defaultType = "application/octet-stream"

var table = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".xml":  "application/xml",

	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".ico":  "image/x-icon",

	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".ogg": "audio/ogg",

	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",

	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",

	".zip": "application/zip",
	".tar": "application/x-tar",
	".gz":  "application/gzip",
	".7z":  "application/x-7z-compressed",
	".rar": "application/vnd.rar",

	".exe": "application/vnd.microsoft.portable-executable",
	".msi": "application/x-msi",
	".dmg": "application/x-apple-diskimage",
	".deb": "application/vnd.debian.binary-package",
	".rpm": "application/x-rpm",
}

// ForExtension returns the MIME type registered for ext (including the
// leading dot), matched case-insensitively. Unknown extensions return
// application/octet-stream.
func ForExtension(ext string) string {
	t, ok := table[strings.ToLower(ext)]
	if !ok {
		return defaultType
	}
	return t
}
