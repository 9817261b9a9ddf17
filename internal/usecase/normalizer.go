package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siteledger/siteledger/internal/domain"
)

// legacyKeyTypes maps legacy question keys to canonical cite types. Records
// predating the citation schema carry only a question key.
var legacyKeyTypes = map[string]domain.CiteType{
	"gfa":             domain.CiteTypeGFALock,
	"gfa_lock":        domain.CiteTypeGFALock,
	"project_address": domain.CiteTypeLocation,
	"address":         domain.CiteTypeLocation,
	"project_name":    domain.CiteTypeProjectName,
	"project_type":    domain.CiteTypeProjectType,
	"budget":          domain.CiteTypeBudget,
	"trade":           domain.CiteTypeTradeSelection,
	"trade_selection": domain.CiteTypeTradeSelection,
	"site_condition":  domain.CiteTypeSiteCondition,
	"start_date":      domain.CiteTypeTimeline,
	"timeline":        domain.CiteTypeTimeline,
	"end_date":        domain.CiteTypeEndDate,
}

var freeFormSanitizer = regexp.MustCompile(`[^A-Z0-9_]+`)

// NormalizeRecords converts heterogeneous raw records into the canonical
// citation shape. It is pure and total: it never fails and never drops a
// record. Records that already carry a cite_type pass through unchanged;
// legacy records are mapped via the key table; unmapped keys fall back to an
// uppercased free-form type tag.
func NormalizeRecords(records []domain.RawRecord) []*domain.Citation {
	out := make([]*domain.Citation, 0, len(records))
	for _, rec := range records {
		out = append(out, normalizeRecord(rec))
	}
	return out
}

func normalizeRecord(rec domain.RawRecord) *domain.Citation {
	c := &domain.Citation{
		ID:          stringField(rec, "id"),
		QuestionKey: firstString(rec, "question_key", "questionKey", "key"),
		Answer:      firstString(rec, "answer", "display"),
		Value:       rec["value"],
		Metadata:    metadataField(rec),
		Timestamp:   timeField(rec, "timestamp"),
		Provenance:  provenanceField(rec),
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Answer == "" && c.Value != nil {
		c.Answer = coerceString(c.Value)
	}

	if raw := firstString(rec, "cite_type", "citeType"); raw != "" {
		c.CiteType = domain.CiteType(raw)
		if c.Provenance == "" {
			c.Provenance = domain.ProvenanceUserInput
		}
		return c
	}

	// Legacy record: best-effort type coercion, never rejected.
	if mapped, ok := legacyKeyTypes[strings.ToLower(c.QuestionKey)]; ok {
		c.CiteType = mapped
	} else {
		c.CiteType = freeFormType(c.QuestionKey)
	}
	if c.Provenance == "" {
		c.Provenance = domain.ProvenanceLegacyMigrated
	}
	return c
}

// freeFormType derives an uppercased type tag from an unmapped legacy key
func freeFormType(key string) domain.CiteType {
	tag := strings.ToUpper(strings.TrimSpace(key))
	tag = strings.ReplaceAll(tag, " ", "_")
	tag = freeFormSanitizer.ReplaceAllString(tag, "")
	if tag == "" {
		tag = "UNKNOWN"
	}
	return domain.CiteType(tag)
}

func stringField(rec domain.RawRecord, key string) string {
	if v, ok := rec[key]; ok {
		return coerceString(v)
	}
	return ""
}

func firstString(rec domain.RawRecord, keys ...string) string {
	for _, k := range keys {
		if s := stringField(rec, k); s != "" {
			return s
		}
	}
	return ""
}

func coerceString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.2f", t), "0"), "0")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func metadataField(rec domain.RawRecord) map[string]string {
	meta := map[string]string{}
	raw, ok := rec["metadata"]
	if !ok {
		return meta
	}
	switch m := raw.(type) {
	case map[string]string:
		for k, v := range m {
			meta[k] = v
		}
	case map[string]interface{}:
		for k, v := range m {
			meta[k] = coerceString(v)
		}
	}
	return meta
}

func timeField(rec domain.RawRecord, key string) time.Time {
	switch t := rec[key].(type) {
	case time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	case float64:
		return time.Unix(int64(t), 0)
	}
	return time.Now()
}

func provenanceField(rec domain.RawRecord) domain.Provenance {
	switch domain.Provenance(stringField(rec, "provenance")) {
	case domain.ProvenanceUserInput:
		return domain.ProvenanceUserInput
	case domain.ProvenanceSynthetic:
		return domain.ProvenanceSynthetic
	case domain.ProvenanceLegacyMigrated:
		return domain.ProvenanceLegacyMigrated
	}
	return ""
}
