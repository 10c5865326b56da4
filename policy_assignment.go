package auth

import "github.com/uptrace/bun"

// assignmentPolicy derives rights from the owning course; students get
// read access through their enrollments.
type assignmentPolicy struct{}

func (assignmentPolicy) Kind() ResourceKind { return ResourceAssignment }

func (p assignmentPolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	assignment, _ := record.(*Assignment)

	switch action {
	case ActionIndex:
		return permit(), nil

	case ActionCreate, ActionUpdate, ActionDestroy:
		if assignment == nil {
			if actor.IsGlobalAdmin() {
				return permit(), nil
			}
			return deny("assignment relation not loaded"), nil
		}
		return courseWriteDecision(actor, assignment.Course), nil

	case ActionShow:
		return containsDecision(p.Scope(actor), assignment, "assignment is outside the actor's visibility"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

func (p assignmentPolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return assignmentScope{byOrg: true, orgID: orgID(actor)}
	case actor.IsTeacher():
		return assignmentScope{byTeacher: true, teacherID: actor.ID}
	case actor.IsStudent():
		return assignmentScope{byStudent: true, studentID: actor.ID}
	default:
		return emptyScope{}
	}
}

type assignmentScope struct {
	byOrg     bool
	orgID     int64
	byTeacher bool
	teacherID int64
	byStudent bool
	studentID int64
}

func (s assignmentScope) Contains(record any) bool {
	assignment, ok := record.(*Assignment)
	if !ok || assignment == nil || assignment.Course == nil {
		return false
	}
	course := assignment.Course
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

func (s assignmentScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	q = q.Join("JOIN courses AS course ON course.id = ?TableAlias.course_id")
	switch {
	case s.byOrg:
		return q.Where("course.organization_id = ?", s.orgID)
	case s.byTeacher:
		return q.Where("course.teacher_id = ?", s.teacherID)
	case s.byStudent:
		return q.
			Join("JOIN enrollments AS enr ON enr.course_id = course.id").
			Where("enr.user_id = ?", s.studentID)
	default:
		return q.Where("1 = 0")
	}
}
