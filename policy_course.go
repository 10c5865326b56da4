package auth

import "github.com/uptrace/bun"

// coursePolicy: courses are managed by admins and the owning teacher, and
// visible to enrolled students.
type coursePolicy struct{}

func (coursePolicy) Kind() ResourceKind { return ResourceCourse }

func (p coursePolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	course, _ := record.(*Course)

	switch action {
	case ActionIndex:
		return permit(), nil

	case ActionCreate, ActionUpdate, ActionDestroy:
		return courseWriteDecision(actor, course), nil

	case ActionShow:
		return containsDecision(p.Scope(actor), course, "course is outside the actor's visibility"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

// courseWriteDecision is the shared ownership rule: global admin, same-org
// org admin, or the teacher who owns the course. Nested policies reuse it
// after traversing up to the course.
func courseWriteDecision(actor *User, course *Course) PolicyDecision {
	if actor.IsGlobalAdmin() {
		return permit()
	}

	if course == nil {
		// A missing relation chain denies, never wildcards.
		return deny("course relation not loaded")
	}

	if actor.IsOrgAdmin() && actor.InOrganization(course.OrganizationID) {
		return permit()
	}

	if actor.IsTeacher() && course.OwnedBy(actor.ID) {
		return permit()
	}

	return deny("course is outside the actor's ownership")
}

func (p coursePolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return courseScope{byOrg: true, orgID: orgID(actor)}
	case actor.IsTeacher():
		return courseScope{byTeacher: true, teacherID: actor.ID}
	case actor.IsStudent():
		return courseScope{byStudent: true, studentID: actor.ID}
	default:
		return emptyScope{}
	}
}

type courseScope struct {
	byOrg     bool
	orgID     int64
	byTeacher bool
	teacherID int64
	byStudent bool
	studentID int64
}

func (s courseScope) Contains(record any) bool {
	course, ok := record.(*Course)
	if !ok || course == nil {
		return false
	}
	switch {
	case s.byOrg:
		return course.OrganizationID == s.orgID
	case s.byTeacher:
		return course.OwnedBy(s.teacherID)
	case s.byStudent:
		return course.HasEnrollmentFor(s.studentID)
	default:
		return false
	}
}

func (s courseScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	switch {
	case s.byOrg:
		return q.Where("?TableAlias.organization_id = ?", s.orgID)
	case s.byTeacher:
		return q.Where("?TableAlias.teacher_id = ?", s.teacherID)
	case s.byStudent:
		return q.
			Join("JOIN enrollments AS enr ON enr.course_id = ?TableAlias.id").
			Where("enr.user_id = ?", s.studentID)
	default:
		return q.Where("1 = 0")
	}
}
