package domain

import (
	"testing"
)

func TestLedger_UpsertSingleInstance(t *testing.T) {
	ledger := NewLedger("proj-1", nil)

	first := NewCitation(CiteTypeProjectName, "project_name", "Harbor View", "Harbor View")
	if inserted := ledger.Upsert(first); !inserted {
		t.Fatal("expected first upsert to insert")
	}

	second := NewCitation(CiteTypeProjectName, "project_name", "Harbor View Renovation", "Harbor View Renovation")
	if inserted := ledger.Upsert(second); inserted {
		t.Fatal("expected second upsert to replace, not insert")
	}

	all := ledger.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(all))
	}
	if all[0].Answer != "Harbor View Renovation" {
		t.Errorf("expected replacement answer, got %q", all[0].Answer)
	}
}

func TestLedger_UpsertMultiInstance(t *testing.T) {
	ledger := NewLedger("proj-1", nil)

	c1 := NewSyntheticCitation(CiteTypeContract, "contract", "Electrical works", 48000.0, "ct-1")
	c1.WithMeta(MetaContractID, "ct-1")
	c2 := NewSyntheticCitation(CiteTypeContract, "contract", "Plumbing works", 31000.0, "ct-2")
	c2.WithMeta(MetaContractID, "ct-2")

	ledger.Upsert(c1)
	if inserted := ledger.Upsert(c2); !inserted {
		t.Fatal("distinct contract ids must occupy distinct slots")
	}
	if len(ledger.All()) != 2 {
		t.Fatalf("expected 2 contract citations, got %d", len(ledger.All()))
	}

	// Same contract id lands in the same slot.
	c1b := NewSyntheticCitation(CiteTypeContract, "contract", "Electrical works rev2", 52000.0, "ct-1")
	c1b.WithMeta(MetaContractID, "ct-1")
	if inserted := ledger.Upsert(c1b); inserted {
		t.Fatal("same contract id must replace, not insert")
	}
	if got := ledger.GetKeyed(CiteTypeContract, "ct-1"); got == nil || got.Answer != "Electrical works rev2" {
		t.Error("expected keyed slot to hold the replacement")
	}
}

func TestLedger_UpdateByID(t *testing.T) {
	c := NewCitation(CiteTypeBudget, "budget", "USD 100.00", 100.0)
	ledger := NewLedger("proj-1", []*Citation{c})

	if err := ledger.UpdateByID(c.ID, "USD 120.00", 120.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := ledger.GetByID(c.ID)
	if got.Answer != "USD 120.00" {
		t.Errorf("expected edited answer, got %q", got.Answer)
	}
	if got.Provenance != ProvenanceUserInput {
		t.Errorf("an edit marks provenance user_input, got %s", got.Provenance)
	}

	if err := ledger.UpdateByID("missing", "x", nil); err != ErrCitationNotFound {
		t.Errorf("expected ErrCitationNotFound, got %v", err)
	}
}

func TestLedger_SnapshotIsolation(t *testing.T) {
	ledger := NewLedger("proj-1", nil)
	snap := ledger.Snapshot()

	ledger.Upsert(NewCitation(CiteTypeLocation, "address", "12 Harbor View Rd", nil))

	if snap.Len() != 0 {
		t.Error("snapshot must not observe writes made after it was taken")
	}
	if !ledger.Snapshot().Has(CiteTypeLocation) {
		t.Error("a fresh snapshot observes the write")
	}
}

func TestCitation_InstanceKey(t *testing.T) {
	invite := NewSyntheticCitation(CiteTypeTeamInvite, "team_member", "Sam", "Sam", "tm-1")
	invite.WithMeta(MetaMemberID, "tm-1")
	if invite.InstanceKey() != "tm-1" {
		t.Errorf("expected member key, got %q", invite.InstanceKey())
	}

	single := NewCitation(CiteTypeBudget, "budget", "USD 100.00", 100.0)
	if single.InstanceKey() != "" {
		t.Errorf("single-instance types have no key, got %q", single.InstanceKey())
	}
}
