// Package access defines the fixed role -> visible-result-fields matrix.
//
// The matrix gates what gets serialized to internal viewers, so it fails
// closed: a role that is not in the table sees nothing, and lookups never
// return an error. Both the role and the field set are closed enumerations -
// adding a field means touching the Profile struct and every row below, which
// is exactly the review friction we want for disclosure changes.
package access

// Role enumerates the internal user roles.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleHRManager      Role = "hr_manager"
	RoleRecruiter      Role = "recruiter"
	RoleDepartmentHead Role = "department_head"
	RoleObserver       Role = "observer"
)

// Profile is the boolean visibility vector over result fields plus the
// action permissions tied to a role. The zero value grants nothing.
type Profile struct {
	CompositeScores bool
	SubtestDetail   bool
	Transcripts     bool
	RedFlags        bool
	Predictions     bool
	InterviewGuide  bool
	DevelopmentPlan bool
	Notes           bool

	Export       bool
	BulkActions  bool
	StatusChange bool
}

// matrix is the full disclosure table. Every known role has an explicit row;
// there is deliberately no "default" row to fall through to.
var matrix = map[Role]Profile{
	RoleAdmin: {
		CompositeScores: true,
		SubtestDetail:   true,
		Transcripts:     true,
		RedFlags:        true,
		Predictions:     true,
		InterviewGuide:  true,
		DevelopmentPlan: true,
		Notes:           true,
		Export:          true,
		BulkActions:     true,
		StatusChange:    true,
	},
	RoleHRManager: {
		CompositeScores: true,
		SubtestDetail:   true,
		Transcripts:     true,
		RedFlags:        true,
		Predictions:     true,
		InterviewGuide:  true,
		DevelopmentPlan: true,
		Notes:           true,
		Export:          true,
		StatusChange:    true,
	},
	RoleRecruiter: {
		CompositeScores: true,
		RedFlags:        true,
		InterviewGuide:  true,
		Notes:           true,
		StatusChange:    true,
	},
	RoleDepartmentHead: {
		CompositeScores: true,
		SubtestDetail:   true,
		Predictions:     true,
		InterviewGuide:  true,
		DevelopmentPlan: true,
	},
	RoleObserver: {
		CompositeScores: true,
	},
}

// ProfileFor returns the visibility profile for a role. Unknown roles get the
// zero profile - no fields, no permissions - rather than an error, because this
// sits directly in front of serialization.
func ProfileFor(role Role) Profile {
	return matrix[role]
}

// KnownRoles returns every role with an explicit matrix row.
func KnownRoles() []Role {
	return []Role{RoleAdmin, RoleHRManager, RoleRecruiter, RoleDepartmentHead, RoleObserver}
}
