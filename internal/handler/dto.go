package handler

import (
	"time"

	"github.com/msomdec/gohans-journey/internal/domain"
	"github.com/msomdec/gohans-journey/internal/service"
)

// MediaDTO is the JSON representation of a media record.
type MediaDTO struct {
	ID         string `json:"id"`
	Year       int    `json:"year"`
	Filename   string `json:"filename"`
	Type       string `json:"type"`
	UploadedAt string `json:"uploadedAt"`
	URL        string `json:"url"`
}

func toMediaDTO(m domain.Media, url func(string) string) MediaDTO {
	return MediaDTO{
		ID:         m.ID,
		Year:       m.Year,
		Filename:   m.Filename,
		Type:       string(m.Type),
		UploadedAt: m.UploadedAt.UTC().Format(time.RFC3339Nano),
		URL:        url(m.Filename),
	}
}

func toMediaDTOs(media []domain.Media, url func(string) string) []MediaDTO {
	dtos := make([]MediaDTO, len(media))
	for i, m := range media {
		dtos[i] = toMediaDTO(m, url)
	}
	return dtos
}

// YearGroupDTO is one year bucket of the timeline.
type YearGroupDTO struct {
	Year  int        `json:"year"`
	Media []MediaDTO `json:"media"`
}

func toTimelineDTO(groups []service.YearGroup, url func(string) string) []YearGroupDTO {
	dtos := make([]YearGroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = YearGroupDTO{Year: g.Year, Media: toMediaDTOs(g.Media, url)}
	}
	return dtos
}

// UploadResponseDTO is returned by a successful upload.
type UploadResponseDTO struct {
	Success bool       `json:"success"`
	Media   []MediaDTO `json:"media"`
	Count   int        `json:"count"`
}
