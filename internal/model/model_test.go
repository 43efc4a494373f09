package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcademicPeriod_Names(t *testing.T) {
	p := AcademicPeriod{YearStart: 2024, YearEnd: 2025, Semester: "Ganjil"}
	assert.Equal(t, "2024-2025 Ganjil", p.Name())
	assert.Equal(t, "2024-2025/Ganjil", p.FolderName())
}

func TestNewSearchIndexEntry(t *testing.T) {
	uploaded := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)
	doc := &Document{
		ID:               42,
		Title:            "Urgent Request for Funds",
		OriginalFilename: "request.pdf",
		ContentText:      "body",
		Description:      "desc",
		MimeType:         "application/pdf",
		Year:             2024,
		Month:            9,
		UploadedAt:       uploaded,
		Category:         &Category{Name: "Finance", Slug: "finance"},
		AcademicPeriod:   &AcademicPeriod{YearStart: 2024, YearEnd: 2025, Semester: "Ganjil"},
		Tags:             []Tag{{Name: "urgent"}, {Name: "budget"}},
	}

	entry := NewSearchIndexEntry(doc)

	assert.Equal(t, uint(42), entry.ID)
	assert.Equal(t, "42", entry.DocID())
	assert.Equal(t, "Finance", entry.Category)
	assert.Equal(t, "2024-2025 Ganjil", entry.Period)
	assert.Equal(t, []string{"budget", "urgent"}, entry.Tags)
	assert.Equal(t, uploaded.Unix(), entry.UploadedAt)
	assert.Equal(t, entry, NewSearchIndexEntry(doc), "projection must be a pure function of the record")
}

func TestNewSearchIndexEntry_MissingRelations(t *testing.T) {
	entry := NewSearchIndexEntry(&Document{ID: 1})
	assert.Empty(t, entry.Category)
	assert.Empty(t, entry.Period)
	assert.Empty(t, entry.Tags)
}
