package validation

import (
	"github.com/garyjia/office-orders/internal/domain/workflow"
)

// Profile names a set of fields checked for an action
type Profile string

const (
	ProfileDraft   Profile = "draft"
	ProfileSubmit  Profile = "submit"
	ProfileApprove Profile = "approve"
	ProfileReturn  Profile = "return"
	// ProfileHolder checks nothing; holding the task is enough
	ProfileHolder Profile = "holder"
)

var draftFields = []string{"VisitFrom", "VisitTo", "NatureOfVisit", "Country", "City"}

// profileFields lists the Input fields each profile validates.
// Draft is deliberately lenient so incomplete work can be saved.
var profileFields = map[Profile][]string{
	ProfileDraft:   draftFields,
	ProfileSubmit:  append(append([]string{}, draftFields...), "SigningAuthority", "ToSection", "Remarks"),
	ProfileApprove: {"ActorRole", "Remarks"},
	ProfileReturn:  {"ActorRole", "Remarks", "ReturnTo"},
	ProfileHolder:  {},
}

var actionProfiles = map[workflow.Trigger]Profile{
	workflow.TriggerSave:         ProfileDraft,
	workflow.TriggerDelete:       ProfileHolder,
	workflow.TriggerSubmit:       ProfileSubmit,
	workflow.TriggerApprove:      ProfileApprove,
	workflow.TriggerRejectReturn: ProfileReturn,
}

// ProfileFor returns the profile applied to an action
func ProfileFor(action workflow.Trigger) (Profile, bool) {
	p, ok := actionProfiles[action]
	return p, ok
}

// Fields returns the fields checked by a profile
func (p Profile) Fields() []string {
	return append([]string(nil), profileFields[p]...)
}
