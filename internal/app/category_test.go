package app

import "testing"

func TestCategory(t *testing.T) {
	cases := map[string]string{
		"photo.png":      "images",
		"PHOTO.JPG":      "images",
		"clip.mp4":       "videos",
		"song.mp3":       "audio",
		"cv.pdf":         "documents",
		"sheet.xlsx":     "documents",
		"backup.tar":     "archives",
		"binary.exe":     "other",
		"no-extension":   "other",
		"archive.tar.gz": "archives",
	}
	for filename, want := range cases {
		if got := Category(filename); got != want {
			t.Errorf("Category(%q) = %q, want %q", filename, got, want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	cases := map[string]string{
		"photo.png":        "photo.png",
		"../../etc/passwd": "passwd",
		"  spaced.txt  ":   "spaced.txt",
		"":                 "file",
		".":                "file",
	}
	for in, want := range cases {
		if got := safeFilename(in); got != want {
			t.Errorf("safeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
