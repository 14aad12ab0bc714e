package models

import (
	"path"
	"strings"
)

// FileType is the coarse category of a file.
type FileType string

const (
	TypeImage    FileType = "image"
	TypeDocument FileType = "document"
	TypeVideo    FileType = "video"
	TypeAudio    FileType = "audio"
	TypeOther    FileType = "other"
)

var extensionTypes = map[string]FileType{}

func init() {
	groups := map[FileType][]string{
		TypeDocument: {"pdf", "doc", "docx", "txt", "xls", "xlsx", "csv", "rtf", "ods", "ppt", "odp", "md",
			"html", "htm", "epub", "pages", "fig", "psd", "ai", "indd", "xd", "sketch", "afdesign", "afphoto"},
		TypeImage: {"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp"},
		TypeVideo: {"mp4", "avi", "mov", "mkv", "webm"},
		TypeAudio: {"mp3", "wav", "ogg", "flac"},
	}
	for t, exts := range groups {
		for _, e := range exts {
			extensionTypes[e] = t
		}
	}
}

// ParseFileType returns the FileType named by s and whether it is known.
func ParseFileType(s string) (FileType, bool) {
	switch t := FileType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeImage, TypeDocument, TypeVideo, TypeAudio, TypeOther:
		return t, true
	}
	return "", false
}

// Classify derives the lower-cased extension and type of a file name.
func Classify(name string) (FileType, string) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if ext == "" {
		return TypeOther, ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t, ext
	}
	return TypeOther, ext
}
