package payload

// Canonical backend field names
const (
	KeyCoverPageNo            = "coverPageNo"
	KeyTaskID                 = "taskId"
	KeyProcessID              = "processId"
	KeyActivitySequenceNumber = "activitySequenceNumber"

	KeyEmployeeID   = "employeeId"
	KeyInitiatedBy  = "initiatedBy"
	KeyAssignTo     = "assignTo"
	KeyAssignedRole = "assignedRole"
	KeyUpdatedBy    = "updatedBy"

	KeyEmployeeName = "employeeName"
	KeyDepartment   = "department"
	KeyDesignation  = "designation"

	KeyVisitFrom     = "visitFrom"
	KeyVisitTo       = "visitTo"
	KeyDuration      = "duration"
	KeyNatureOfVisit = "natureOfVisit"
	KeyCountry       = "country"
	KeyCity          = "city"
	KeyClaimType     = "claimType"

	KeyReferenceNo      = "referenceNo"
	KeySubject          = "subject"
	KeyReferenceText    = "referenceText"
	KeyOfficeOrderBody  = "officeOrderBody"
	KeyHeader           = "header"
	KeyFooter           = "footer"
	KeySigningAuthority = "signingAuthority"
	KeyToSection        = "toSection"
	KeyToColumnHTML     = "toColumnHtml"
	KeyPriority         = "priority"
	KeyRemarks          = "remarks"

	KeyStatusID          = "statusId"
	KeyStatusDescription = "statusDescription"
	KeyIsTaskReturned    = "isTaskReturned"
	KeyIsTaskApproved    = "isTaskApproved"
	KeyRejectFlag        = "rejectFlag"
	KeyInitiatedOn       = "initiatedOn"
	KeyUpdatedOn         = "updatedOn"
)

// Keys lists every canonical key; a built record always carries all of them
var Keys = []string{
	KeyCoverPageNo, KeyTaskID, KeyProcessID, KeyActivitySequenceNumber,
	KeyEmployeeID, KeyInitiatedBy, KeyAssignTo, KeyAssignedRole, KeyUpdatedBy,
	KeyEmployeeName, KeyDepartment, KeyDesignation,
	KeyVisitFrom, KeyVisitTo, KeyDuration, KeyNatureOfVisit, KeyCountry, KeyCity, KeyClaimType,
	KeyReferenceNo, KeySubject, KeyReferenceText, KeyOfficeOrderBody, KeyHeader, KeyFooter,
	KeySigningAuthority, KeyToSection, KeyToColumnHTML, KeyPriority, KeyRemarks,
	KeyStatusID, KeyStatusDescription, KeyIsTaskReturned, KeyIsTaskApproved, KeyRejectFlag,
	KeyInitiatedOn, KeyUpdatedOn,
}
