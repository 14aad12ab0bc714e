package models

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		want    FileType
		wantExt string
	}{
		{"report.PDF", TypeDocument, "pdf"},
		{"holiday.jpeg", TypeImage, "jpeg"},
		{"clip.mkv", TypeVideo, "mkv"},
		{"song.flac", TypeAudio, "flac"},
		{"archive.tar.gz", TypeOther, "gz"},
		{"Makefile", TypeOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ext := Classify(tt.name)
			if got != tt.want || ext != tt.wantExt {
				t.Errorf("Classify(%q) = (%q, %q); want (%q, %q)", tt.name, got, ext, tt.want, tt.wantExt)
			}
		})
	}
}

func TestParseFileType(t *testing.T) {
	if got, ok := ParseFileType(" Video "); !ok || got != TypeVideo {
		t.Errorf("ParseFileType(Video) = (%q, %v)", got, ok)
	}
	if _, ok := ParseFileType("spreadsheet"); ok {
		t.Error("expected unknown type to be rejected")
	}
}

func TestStorageUsage_Add(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	var u StorageUsage
	u.Add(File{Type: TypeImage, Size: 10, UpdatedAt: newer})
	u.Add(File{Type: TypeImage, Size: 5, UpdatedAt: older})
	u.Add(File{Type: "unknown", Size: 1, UpdatedAt: older})

	if u.Image.Size != 15 || u.Used != 16 || u.Other.Size != 1 {
		t.Fatalf("unexpected totals: %+v", u)
	}
	if u.Image.LatestDate == nil || !u.Image.LatestDate.Equal(newer) {
		t.Errorf("latest image date = %v; want %v", u.Image.LatestDate, newer)
	}
	if u.Video.LatestDate != nil {
		t.Error("expected no latest date for empty type")
	}
}
