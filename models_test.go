package auth_test

import (
	"testing"

	auth "github.com/campusworks/go-campus-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name      string
		user      *auth.User
		wantField string
	}{
		{
			name: "valid org member",
			user: &auth.User{
				Email:          "student@school.edu",
				Role:           auth.RoleStudent,
				OrganizationID: ptrInt64(1),
				PasswordHash:   "hash",
			},
		},
		{
			name: "valid global admin",
			user: &auth.User{
				Email:              "root@campus.io",
				Role:               auth.RoleGlobalAdmin,
				PasswordHash:       "hash",
				SecurityQuestion:   ptrString("First pet?"),
				SecurityAnswerHash: ptrString("hash"),
			},
		},
		{
			name: "missing email",
			user: &auth.User{
				Role:           auth.RoleStudent,
				OrganizationID: ptrInt64(1),
			},
			wantField: "email",
		},
		{
			name: "malformed email",
			user: &auth.User{
				Email:          "not-an-email",
				Role:           auth.RoleStudent,
				OrganizationID: ptrInt64(1),
			},
			wantField: "email",
		},
		{
			name: "invalid role",
			user: &auth.User{
				Email:          "user@school.edu",
				Role:           auth.Role(42),
				OrganizationID: ptrInt64(1),
			},
			wantField: "role",
		},
		{
			name: "org member without organization",
			user: &auth.User{
				Email: "user@school.edu",
				Role:  auth.RoleTeacher,
			},
			wantField: "organization_id",
		},
		{
			name: "organization mismatch with loaded relation",
			user: &auth.User{
				Email:          "user@school.edu",
				Role:           auth.RoleTeacher,
				OrganizationID: ptrInt64(1),
				Organization:   &auth.Organization{ID: 2},
			},
			wantField: "organization_id",
		},
		{
			name: "global admin with organization",
			user: &auth.User{
				Email:              "root@campus.io",
				Role:               auth.RoleGlobalAdmin,
				OrganizationID:     ptrInt64(1),
				SecurityQuestion:   ptrString("First pet?"),
				SecurityAnswerHash: ptrString("hash"),
			},
			wantField: "organization_id",
		},
		{
			name: "global admin without security question",
			user: &auth.User{
				Email:              "root@campus.io",
				Role:               auth.RoleGlobalAdmin,
				SecurityAnswerHash: ptrString("hash"),
			},
			wantField: "security_question",
		},
		{
			name: "global admin without security answer",
			user: &auth.User{
				Email:            "root@campus.io",
				Role:             auth.RoleGlobalAdmin,
				SecurityQuestion: ptrString("First pet?"),
			},
			wantField: "security_answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, auth.IsValidationError(err))
			assert.Contains(t, auth.ValidationFields(err), tt.wantField)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@school.edu", auth.NormalizeEmail("  User@School.EDU "))

	user := &auth.User{
		Email:          " STUDENT@school.edu",
		Role:           auth.RoleStudent,
		OrganizationID: ptrInt64(1),
	}
	require.NoError(t, user.Validate())
	assert.Equal(t, "student@school.edu", user.Email)
}

func TestUserRoleHelpers(t *testing.T) {
	admin := &auth.User{Role: auth.RoleGlobalAdmin}
	assert.True(t, admin.IsGlobalAdmin())
	assert.False(t, admin.IsStudent())
	assert.Equal(t, "global_admin", admin.RoleName())

	member := &auth.User{Role: auth.RoleTeacher, OrganizationID: ptrInt64(3)}
	assert.True(t, member.InOrganization(3))
	assert.False(t, member.InOrganization(4))
	assert.False(t, admin.InOrganization(3))
}

func TestUserHasSecurityQuestion(t *testing.T) {
	assert.False(t, (&auth.User{}).HasSecurityQuestion())
	assert.False(t, (&auth.User{SecurityQuestion: ptrString("")}).HasSecurityQuestion())
	assert.True(t, (&auth.User{SecurityQuestion: ptrString("First pet?")}).HasSecurityQuestion())
}

func TestCourseOwnership(t *testing.T) {
	course := &auth.Course{ID: 1, OrganizationID: 1, TeacherID: 10}
	assert.True(t, course.OwnedBy(10))
	assert.False(t, course.OwnedBy(11))

	var nilCourse *auth.Course
	assert.False(t, nilCourse.OwnedBy(10))
}

func TestCourseHasEnrollmentFor(t *testing.T) {
	course := &auth.Course{
		ID: 1,
		Enrollments: []*auth.Enrollment{
			{ID: 1, UserID: 20, CourseID: 1},
			nil,
			{ID: 2, UserID: 21, CourseID: 1},
		},
	}

	assert.True(t, course.HasEnrollmentFor(20))
	assert.True(t, course.HasEnrollmentFor(21))
	assert.False(t, course.HasEnrollmentFor(22))

	// Unloaded relation reads as not enrolled.
	bare := &auth.Course{ID: 1}
	assert.False(t, bare.HasEnrollmentFor(20))
}
