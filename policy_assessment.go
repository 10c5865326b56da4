package auth

import "github.com/uptrace/bun"

// assessmentPolicy is the deepest traversal: grading rights come from
// assessment -> assignment -> course, while a student reaches their own
// grades through assessment -> enrollment. A record loaded without the
// relation the decision needs is denied rather than guessed at.
type assessmentPolicy struct{}

func (assessmentPolicy) Kind() ResourceKind { return ResourceAssessment }

func (p assessmentPolicy) Authorize(actor *User, action Action, record any) (PolicyDecision, error) {
	assessment, _ := record.(*Assessment)

	switch action {
	case ActionIndex:
		return permit(), nil

	case ActionCreate, ActionUpdate, ActionDestroy:
		if assessment == nil {
			if actor.IsGlobalAdmin() {
				return permit(), nil
			}
			return deny("assessment relation not loaded"), nil
		}
		if assessment.Assignment == nil {
			if actor.IsGlobalAdmin() {
				return permit(), nil
			}
			return deny("assessment assignment relation not loaded"), nil
		}
		return courseWriteDecision(actor, assessment.Assignment.Course), nil

	case ActionShow:
		return containsDecision(p.Scope(actor), assessment, "assessment is outside the actor's visibility"), nil

	default:
		return PolicyDecision{}, ErrPolicyNotDefined
	}
}

func (p assessmentPolicy) Scope(actor *User) Scope {
	switch {
	case actor.IsGlobalAdmin():
		return allScope{}
	case actor.IsOrgAdmin():
		return assessmentScope{byOrg: true, orgID: orgID(actor)}
	case actor.IsTeacher():
		return assessmentScope{byTeacher: true, teacherID: actor.ID}
	case actor.IsStudent():
		return assessmentScope{byStudent: true, studentID: actor.ID}
	default:
		return emptyScope{}
	}
}

type assessmentScope struct {
	byOrg     bool
	orgID     int64
	byTeacher bool
	teacherID int64
	byStudent bool
	studentID int64
}

func (s assessmentScope) Contains(record any) bool {
	assessment, ok := record.(*Assessment)
	if !ok || assessment == nil {
		return false
	}
	if s.byStudent {
		return assessment.Enrollment != nil && assessment.Enrollment.UserID == s.studentID
	}
	if assessment.Assignment == nil || assessment.Assignment.Course == nil {
		return false
	}
	course := assessment.Assignment.Course
	switch {
	case s.byOrg:
		return course.OrganizationID == s.orgID
	case s.byTeacher:
		return course.OwnedBy(s.teacherID)
	default:
		return false
	}
}

func (s assessmentScope) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	switch {
	case s.byStudent:
		return q.
			Join("JOIN enrollments AS enr ON enr.id = ?TableAlias.enrollment_id").
			Where("enr.user_id = ?", s.studentID)
	case s.byOrg:
		return q.
			Join("JOIN assignments AS asg ON asg.id = ?TableAlias.assignment_id").
			Join("JOIN courses AS course ON course.id = asg.course_id").
			Where("course.organization_id = ?", s.orgID)
	case s.byTeacher:
		return q.
			Join("JOIN assignments AS asg ON asg.id = ?TableAlias.assignment_id").
			Join("JOIN courses AS course ON course.id = asg.course_id").
			Where("course.teacher_id = ?", s.teacherID)
	default:
		return q.Where("1 = 0")
	}
}
