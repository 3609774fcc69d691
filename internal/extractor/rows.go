package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pcax/internal/domain"
)

// rowPayload is the JSON shape the extraction prompt asks the LLM to return.
type rowPayload struct {
	Rows []rawRow `json:"rows"`
}

// rawRow tolerates the type drift LLMs produce: pca_number may arrive as a
// number, a numeric string, or null.
type rawRow struct {
	Address                string          `json:"address"`
	LocationRelationToSite string          `json:"location_relation_to_site"`
	PCANumber              json.RawMessage `json:"pca_number"`
	PCAName                string          `json:"pca_name"`
	DescriptionTimeline    string          `json:"description_timeline"`
	SourcePages            string          `json:"source_pages"`
}

// ParseRows extracts the row list from a raw LLM reply. Rows missing a
// required field (address, pca_name, description_timeline) are dropped with
// a logged warning rather than failing the chunk. A missing source_pages is
// backfilled with the chunk's page range.
func ParseRows(provider, raw string, chunk domain.Chunk, log *zap.Logger) ([]domain.ExtractedRow, error) {
	var payload rowPayload
	if !ExtractJSONObject(raw, &payload) {
		return nil, &InvalidResponseError{
			Provider: provider,
			Err:      fmt.Errorf("no JSON object found in response"),
			Raw:      truncate(raw, 500),
		}
	}
	if payload.Rows == nil {
		return nil, &InvalidResponseError{
			Provider: provider,
			Err:      fmt.Errorf(`response JSON has no "rows" array`),
			Raw:      truncate(raw, 500),
		}
	}

	rows := make([]domain.ExtractedRow, 0, len(payload.Rows))
	for i, r := range payload.Rows {
		if strings.TrimSpace(r.Address) == "" ||
			strings.TrimSpace(r.PCAName) == "" ||
			strings.TrimSpace(r.DescriptionTimeline) == "" {
			log.Warn("dropping incomplete extracted row",
				zap.String("provider", provider),
				zap.Int("chunk", chunk.Index),
				zap.Int("row", i),
				zap.String("address", r.Address),
				zap.String("pca_name", r.PCAName))
			continue
		}
		row := domain.ExtractedRow{
			Address:                strings.TrimSpace(r.Address),
			LocationRelationToSite: normalizeLocation(r.LocationRelationToSite),
			PCANumber:              parsePCANumber(r.PCANumber),
			PCAName:                strings.TrimSpace(r.PCAName),
			DescriptionTimeline:    strings.TrimSpace(r.DescriptionTimeline),
			SourcePages:            strings.TrimSpace(r.SourcePages),
		}
		if row.SourcePages == "" {
			row.SourcePages = chunk.PageRef()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parsePCANumber(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return &n
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
		if v, err := strconv.Atoi(s); err == nil {
			return &v
		}
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		n := int(f)
		return &n
	}
	return nil
}

func normalizeLocation(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on-site", "onsite", "on site":
		return string(domain.LocationOnSite)
	case "off-site", "offsite", "off site":
		return string(domain.LocationOffSite)
	}
	return strings.TrimSpace(s)
}
