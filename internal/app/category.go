package app

import (
	"path/filepath"
	"strings"
)

var categoryByExt = map[string]string{
	".png": "images", ".jpg": "images", ".jpeg": "images", ".gif": "images",
	".webp": "images", ".svg": "images", ".bmp": "images", ".ico": "images",

	".mp4": "videos", ".mov": "videos", ".avi": "videos", ".mkv": "videos",
	".webm": "videos",

	".mp3": "audio", ".wav": "audio", ".ogg": "audio", ".flac": "audio",
	".m4a": "audio",

	".pdf": "documents", ".doc": "documents", ".docx": "documents",
	".txt": "documents", ".md": "documents", ".rtf": "documents",
	".xls": "documents", ".xlsx": "documents", ".ppt": "documents",
	".pptx": "documents", ".csv": "documents",

	".zip": "archives", ".rar": "archives", ".7z": "archives",
	".tar": "archives", ".gz": "archives",
}

// Category maps a filename to its storage category by extension.
func Category(filename string) string {
	if cat, ok := categoryByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return cat
	}
	return "other"
}
