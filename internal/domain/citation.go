package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CiteType identifies what a citation represents
type CiteType string

const (
	CiteTypeProjectName    CiteType = "PROJECT_NAME"
	CiteTypeProjectType    CiteType = "PROJECT_TYPE"
	CiteTypeLocation       CiteType = "LOCATION"
	CiteTypeGFALock        CiteType = "GFA_LOCK"
	CiteTypeTradeSelection CiteType = "TRADE_SELECTION"
	CiteTypeSiteCondition  CiteType = "SITE_CONDITION"
	CiteTypeTimeline       CiteType = "TIMELINE"
	CiteTypeEndDate        CiteType = "END_DATE"
	CiteTypeBudget         CiteType = "BUDGET"
	CiteTypeTeamInvite     CiteType = "TEAM_MEMBER_INVITE"
	CiteTypeContract       CiteType = "CONTRACT"
	CiteTypeWeatherAlert   CiteType = "WEATHER_ALERT"
)

// Provenance marks where a citation came from
type Provenance string

const (
	ProvenanceUserInput      Provenance = "user_input"
	ProvenanceSynthetic      Provenance = "synthetic"
	ProvenanceLegacyMigrated Provenance = "legacy_migrated"
)

// Metadata keys for multi-instance citation types. TEAM_MEMBER_INVITE and
// CONTRACT are 1:N per project, keyed by these.
const (
	MetaMemberID   = "member_id"
	MetaContractID = "contract_id"
	MetaInviteHash = "invite_token_hash"
)

// Citation is a single attributed, typed piece of verified project data
type Citation struct {
	ID          string            `json:"id"`
	CiteType    CiteType          `json:"cite_type"`
	QuestionKey string            `json:"question_key"`
	Answer      string            `json:"answer"`
	Value       interface{}       `json:"value,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Provenance  Provenance        `json:"provenance"`
}

// NewCitation creates a user-entered citation
func NewCitation(citeType CiteType, questionKey, answer string, value interface{}) *Citation {
	return &Citation{
		ID:          uuid.NewString(),
		CiteType:    citeType,
		QuestionKey: questionKey,
		Answer:      answer,
		Value:       value,
		Metadata:    map[string]string{},
		Timestamp:   time.Now(),
		Provenance:  ProvenanceUserInput,
	}
}

// NewSyntheticCitation creates a derived citation. The id embeds the dedup
// key and a timestamp so reapplying the same rule is safe.
func NewSyntheticCitation(citeType CiteType, questionKey, answer string, value interface{}, dedupKey string) *Citation {
	id := fmt.Sprintf("syn_%s_%s_%d", strings.ToLower(string(citeType)), dedupKey, time.Now().UnixNano())
	return &Citation{
		ID:          id,
		CiteType:    citeType,
		QuestionKey: questionKey,
		Answer:      answer,
		Value:       value,
		Metadata:    map[string]string{},
		Timestamp:   time.Now(),
		Provenance:  ProvenanceSynthetic,
	}
}

// MultiInstance reports whether the type is 1:N per project
func (t CiteType) MultiInstance() bool {
	return t == CiteTypeTeamInvite || t == CiteTypeContract
}

// InstanceKey returns the dedup key for multi-instance types: the member id
// for invites, the contract id for contracts, empty otherwise.
func (c *Citation) InstanceKey() string {
	switch c.CiteType {
	case CiteTypeTeamInvite:
		return c.Metadata[MetaMemberID]
	case CiteTypeContract:
		return c.Metadata[MetaContractID]
	}
	return ""
}

// WithMeta sets a metadata entry and returns the citation for chaining
func (c *Citation) WithMeta(key, value string) *Citation {
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	c.Metadata[key] = value
	return c
}

// Edit mutates the citation in place: same id, new answer/value. Citations
// are never hard-deleted.
func (c *Citation) Edit(answer string, value interface{}) {
	c.Answer = answer
	c.Value = value
	c.Provenance = ProvenanceUserInput
	c.Timestamp = time.Now()
}

// Custom errors
var (
	ErrCitationNotFound = NewDomainError("citation not found")
	ErrDuplicateKey     = NewDomainError("citation already exists for key")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
