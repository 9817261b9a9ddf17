package domain

// Role is the raw role string attached to an actor
type Role string

const (
	RoleOwner         Role = "owner"
	RoleForeman       Role = "foreman"
	RoleWorker        Role = "worker"
	RoleInspector     Role = "inspector"
	RoleSubcontractor Role = "subcontractor"
	RolePublic        Role = "public"
)

// AccessTier is the ordered visibility level gating reads
type AccessTier int

const (
	TierPublic AccessTier = iota + 1
	TierWorker
	TierForeman
	TierOwner
)

var tierNames = map[AccessTier]string{
	TierPublic:  "public",
	TierWorker:  "worker",
	TierForeman: "foreman",
	TierOwner:   "owner",
}

func (t AccessTier) String() string {
	return tierNames[t]
}

// roleTiers is the total role→tier mapping. Roles not listed resolve to
// public.
var roleTiers = map[Role]AccessTier{
	RoleOwner:         TierOwner,
	RoleForeman:       TierForeman,
	RoleWorker:        TierWorker,
	RoleInspector:     TierWorker,
	RoleSubcontractor: TierWorker,
	RolePublic:        TierPublic,
}

// TierOf maps a role to its visibility tier, defaulting to public
func TierOf(role Role) AccessTier {
	if tier, ok := roleTiers[role]; ok {
		return tier
	}
	return TierPublic
}

// HasAccess reports whether the role can see content gated at the tier
func HasAccess(role Role, tier AccessTier) bool {
	return TierOf(role) >= tier
}

// CanEdit reports whether the role may edit citations. Foreman edits
// unconditionally; the owner only while the edit-mode flag is on. Owner
// read access never implies write access by itself.
func CanEdit(role Role, editMode bool) bool {
	switch role {
	case RoleForeman:
		return true
	case RoleOwner:
		return editMode
	}
	return false
}

// CanViewFinancials is owner-only, with no tier-hierarchy override
func CanViewFinancials(role Role) bool {
	return role == RoleOwner
}

// CanToggleTask reports whether the role may toggle the task's status.
// Owner and foreman may toggle any task; worker-class roles only their own.
func CanToggleTask(role Role, task *Task, userID string) bool {
	switch role {
	case RoleOwner, RoleForeman:
		return true
	case RoleWorker, RoleInspector, RoleSubcontractor:
		return task.AssignedTo == userID
	}
	return false
}

// CanRequestChange reports whether the role may open a pending quantity
// change. Foreman and subcontractor-class roles request; the owner approves.
func CanRequestChange(role Role) bool {
	return role == RoleForeman || role == RoleSubcontractor
}
