package entity

// Status descriptions as defined by the backend status table.
// Matching is exact, including case ("Deleted").
const (
	StatusSaveAndHold = "saveandhold"
	StatusOngoing     = "ongoing"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusDeleted     = "Deleted"
)

// DefaultFallbackStatusID is used when a status description has no record
const DefaultFallbackStatusID = 8

// Reject flag values
const (
	RejectFlagNone     = 0
	RejectFlagReturned = 1
)

// Default roles of the approval chain
const (
	RoleInitiator = "initiator"
	RoleReviewer  = "reviewer"
	RoleApprover  = "approver"
)

// CoverPageNoPrefix prefixes generated cover page numbers (OO/<year>/<seq>)
const CoverPageNoPrefix = "OO"

// Date layouts used on the wire
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05Z07:00"
)
