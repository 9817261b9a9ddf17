package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/siteledger/siteledger/internal/domain"
)

func TestNormalizeRecords_PassThrough(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	records := []domain.RawRecord{
		{
			"id":           "c-1",
			"cite_type":    "PROJECT_NAME",
			"question_key": "project_name",
			"answer":       "Harbor View Renovation",
			"timestamp":    ts,
			"provenance":   "user_input",
		},
	}

	citations := NormalizeRecords(records)

	assert.Len(t, citations, 1)
	assert.Equal(t, "c-1", citations[0].ID)
	assert.Equal(t, domain.CiteTypeProjectName, citations[0].CiteType)
	assert.Equal(t, "Harbor View Renovation", citations[0].Answer)
	assert.Equal(t, ts, citations[0].Timestamp)
	assert.Equal(t, domain.ProvenanceUserInput, citations[0].Provenance)
}

func TestNormalizeRecords_LegacyKeyMapping(t *testing.T) {
	tests := []struct {
		key      string
		expected domain.CiteType
	}{
		{"gfa", domain.CiteTypeGFALock},
		{"GFA", domain.CiteTypeGFALock},
		{"project_address", domain.CiteTypeLocation},
		{"budget", domain.CiteTypeBudget},
		{"start_date", domain.CiteTypeTimeline},
		{"end_date", domain.CiteTypeEndDate},
	}
	for _, tt := range tests {
		citations := NormalizeRecords([]domain.RawRecord{
			{"question_key": tt.key, "answer": "some value"},
		})
		assert.Len(t, citations, 1)
		assert.Equal(t, tt.expected, citations[0].CiteType, "key %q", tt.key)
		assert.Equal(t, domain.ProvenanceLegacyMigrated, citations[0].Provenance)
	}
}

func TestNormalizeRecords_FreeFormFallback(t *testing.T) {
	citations := NormalizeRecords([]domain.RawRecord{
		{"question_key": "noise rating (dB)", "answer": "42"},
		{"question_key": "???", "answer": "x"},
	})

	assert.Len(t, citations, 2)
	assert.Equal(t, domain.CiteType("NOISE_RATING_DB"), citations[0].CiteType)
	assert.Equal(t, domain.CiteType("UNKNOWN"), citations[1].CiteType)
}

func TestNormalizeRecords_NeverDrops(t *testing.T) {
	// Malformed shapes still come out as citations; the transform is total.
	records := []domain.RawRecord{
		{},
		{"value": 3.5},
		{"answer": nil, "question_key": nil},
		{"metadata": "not a map"},
	}

	citations := NormalizeRecords(records)

	assert.Len(t, citations, len(records))
	for _, c := range citations {
		assert.NotEmpty(t, c.ID)
		assert.NotEmpty(t, c.CiteType)
	}
}

func TestNormalizeRecords_ValueCoercion(t *testing.T) {
	citations := NormalizeRecords([]domain.RawRecord{
		{"question_key": "gfa", "value": 1200.0},
	})

	assert.Len(t, citations, 1)
	assert.Equal(t, domain.CiteTypeGFALock, citations[0].CiteType)
	assert.NotEmpty(t, citations[0].Answer)
	assert.Equal(t, 1200.0, citations[0].Value)
}

func TestNormalizeRecords_MetadataCoercion(t *testing.T) {
	citations := NormalizeRecords([]domain.RawRecord{
		{
			"cite_type": "CONTRACT",
			"answer":    "Electrical works",
			"metadata":  map[string]interface{}{"contract_id": "ct-1", "party": "Volt & Co"},
		},
	})

	assert.Len(t, citations, 1)
	assert.Equal(t, "ct-1", citations[0].Metadata[domain.MetaContractID])
	assert.Equal(t, "ct-1", citations[0].InstanceKey())
}
