package auth

import "github.com/uptrace/bun"

// enrollmentPolicy grants write access through the enrollment's course;
// a student only ever sees their own rows.
type enrollmentPolicy struct{}

func (enrollmentPolicy) Kind() ResourceKind { return ResourceEnrollment }

func (p enrollmentPolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	enrollment, _ := record.(*Enrollment)

	switch action {
	case ActionIndex:
		return permit(), nil

	case ActionCreate, ActionUpdate, ActionDestroy, ActionBulkCreate:
		if enrollment == nil {
			if actor.IsGlobalAdmin() {
				return permit(), nil
			}
			return deny("enrollment relation not loaded"), nil
		}
		return courseWriteDecision(actor, enrollment.Course), nil

	case ActionShow:
		return containsDecision(p.Scope(actor), enrollment, "enrollment is outside the actor's visibility"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

func (p enrollmentPolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return enrollmentScope{byOrg: true, orgID: orgID(actor)}
	case actor.IsTeacher():
		return enrollmentScope{byTeacher: true, teacherID: actor.ID}
	case actor.IsStudent():
		return enrollmentScope{byStudent: true, studentID: actor.ID}
	default:
		return emptyScope{}
	}
}

type enrollmentScope struct {
	byOrg     bool
	orgID     int64
	byTeacher bool
	teacherID int64
	byStudent bool
	studentID int64
}

func (s enrollmentScope) Contains(record any) bool {
	enrollment, ok := record.(*Enrollment)
	if !ok || enrollment == nil {
		return false
	}
	if s.byStudent {
		return enrollment.UserID == s.studentID
	}
	if enrollment.Course == nil {
		return false
	}
	switch {
	case s.byOrg:
		return enrollment.Course.OrganizationID == s.orgID
	case s.byTeacher:
		return enrollment.Course.OwnedBy(s.teacherID)
	default:
		return false
	}
}

func (s enrollmentScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	switch {
	case s.byStudent:
		return q.Where("?TableAlias.user_id = ?", s.studentID)
	case s.byOrg:
		return q.
			Join("JOIN courses AS course ON course.id = ?TableAlias.course_id").
			Where("course.organization_id = ?", s.orgID)
	case s.byTeacher:
		return q.
			Join("JOIN courses AS course ON course.id = ?TableAlias.course_id").
			Where("course.teacher_id = ?", s.teacherID)
	default:
		return q.Where("1 = 0")
	}
}
