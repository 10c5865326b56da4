package auth

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/uptrace/bun"
)

// User is the authenticated principal. Every user except the global admin
// belongs to exactly one organization; email uniqueness is scoped to it.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID                 int64         `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email              string        `bun:"email,notnull" json:"email,omitempty"`
	Role               Role          `bun:"role,notnull" json:"role"`
	OrganizationID     *int64        `bun:"organization_id,nullzero" json:"organization_id,omitempty"`
	Organization       *Organization `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	Active             bool          `bun:"active,notnull,default:true" json:"active"`
	PasswordHash       string        `bun:"password_hash,notnull" json:"-"`
	SecurityQuestion   *string       `bun:"security_question,nullzero" json:"security_question,omitempty"`
	SecurityAnswerHash *string       `bun:"security_answer_hash,nullzero" json:"-"`
	ResetTokenUsedAt   *time.Time    `bun:"reset_token_used_at,nullzero" json:"reset_token_used_at,omitempty"`
	ResetTokenSentAt   *time.Time    `bun:"reset_token_sent_at,nullzero" json:"reset_token_sent_at,omitempty"`
	DeactivatedAt      *time.Time    `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	DeactivatedByID    *int64        `bun:"deactivated_by_id,nullzero" json:"deactivated_by_id,omitempty"`
	ActivatedByID      *int64        `bun:"activated_by_id,nullzero" json:"activated_by_id,omitempty"`
	CreatedAt          *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsGlobalAdmin reports whether the user holds the system-wide admin role.
func (u *User) IsGlobalAdmin() bool { return u.Role == RoleGlobalAdmin }

// IsOrgAdmin reports whether the user administers their organization.
func (u *User) IsOrgAdmin() bool { return u.Role == RoleOrgAdmin }

// IsTeacher reports whether the user holds the teacher role.
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }

// IsStudent reports whether the user holds the student role.
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// RoleName returns the human-readable role name.
func (u *User) RoleName() string { return u.Role.String() }

// HasSecurityQuestion reports whether the account requires the secondary
// factor before a session token is issued.
func (u *User) HasSecurityQuestion() bool {
	return u.SecurityQuestion != nil && *u.SecurityQuestion != ""
}

// InOrganization reports whether the user belongs to the given organization.
func (u *User) InOrganization(orgID int64) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}

// NormalizeEmail lowercases and trims the email before validation or lookup.
func (u *User) NormalizeEmail() {
	u.Email = NormalizeEmail(u.Email)
}

// NormalizeEmail canonicalizes an email address for org-scoped lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate enforces the user record invariants:
//   - a valid role and a well-formed email
//   - non-global-admins carry an organization id, and it matches the loaded
//     organization relation when present
//   - the global admin carries both security question and answer hash, since
//     no organization-scoped admin can reset that account
//
// The single-global-admin invariant needs a store lookup and lives in the
// Users repository.
func (u *User) Validate() error {
	u.NormalizeEmail()

	fields := map[string][]string{}

	if err := validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
	); err != nil {
		for field, ferr := range err.(validation.Errors) {
			fields[field] = append(fields[field], ferr.Error())
		}
	}

	if !u.Role.IsValid() {
		fields["role"] = append(fields["role"], "is not a valid role")
	}

	if u.IsGlobalAdmin() {
		if u.OrganizationID != nil {
			fields["organization_id"] = append(fields["organization_id"], "must be blank for the global admin")
		}
		if !u.HasSecurityQuestion() {
			fields["security_question"] = append(fields["security_question"], "is required for the global admin")
		}
		if u.SecurityAnswerHash == nil || *u.SecurityAnswerHash == "" {
			fields["security_answer"] = append(fields["security_answer"], "is required for the global admin")
		}
	} else {
		if u.OrganizationID == nil {
			fields["organization_id"] = append(fields["organization_id"], "is required")
		} else if u.Organization != nil && u.Organization.ID != *u.OrganizationID {
			fields["organization_id"] = append(fields["organization_id"], "must match the organization association")
		}
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}

	return nil
}

// Organization is the tenancy boundary. This package references it for
// scoping and never owns its lifecycle beyond create/destroy authorization.
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name      string     `bun:"name,notnull" json:"name,omitempty"`
	Code      string     `bun:"code,notnull,unique" json:"code,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Profile carries per-user contact details. A default profile is created at
// signup for every non-global-admin.
type Profile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:prof"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID    int64      `bun:"user_id,notnull,unique" json:"user_id,omitempty"`
	Phone     string     `bun:"phone" json:"phone,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Course, Enrollment, Assignment, and Assessment are business records owned
// elsewhere. The policy engine inspects only the ownership chain below; a
// missing intermediate relation denies, never permits.

type Course struct {
	bun.BaseModel `bun:"table:courses,alias:course"`

	ID             int64         `bun:"id,pk,autoincrement" json:"id,omitempty"`
	OrganizationID int64         `bun:"organization_id,notnull" json:"organization_id,omitempty"`
	TeacherID      int64         `bun:"teacher_id,notnull" json:"teacher_id,omitempty"`
	Enrollments    []*Enrollment `bun:"rel:has-many,join:id=course_id" json:"enrollments,omitempty"`
}

// OwnedBy reports whether the course belongs to the given teacher.
func (c *Course) OwnedBy(teacherID int64) bool {
	return c != nil && c.TeacherID == teacherID
}

// HasEnrollmentFor reports whether the given student is enrolled. An unloaded
// enrollments relation reads as not enrolled.
func (c *Course) HasEnrollmentFor(userID int64) bool {
	if c == nil {
		return false
	}
	for _, e := range c.Enrollments {
		if e != nil && e.UserID == userID {
			return true
		}
	}
	return false
}

type Enrollment struct {
	bun.BaseModel `bun:"table:enrollments,alias:enr"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID   int64   `bun:"user_id,notnull" json:"user_id,omitempty"`
	CourseID int64   `bun:"course_id,notnull" json:"course_id,omitempty"`
	Status   int     `bun:"status,notnull,default:1" json:"status"`
	Course   *Course `bun:"rel:belongs-to,join:course_id=id" json:"course,omitempty"`
}

type Assignment struct {
	bun.BaseModel `bun:"table:assignments,alias:asg"`

	ID       int64   `bun:"id,pk,autoincrement" json:"id,omitempty"`
	CourseID int64   `bun:"course_id,notnull" json:"course_id,omitempty"`
	Course   *Course `bun:"rel:belongs-to,join:course_id=id" json:"course,omitempty"`
}

type Assessment struct {
	bun.BaseModel `bun:"table:assessments,alias:asmt"`

	ID           int64       `bun:"id,pk,autoincrement" json:"id,omitempty"`
	EnrollmentID int64       `bun:"enrollment_id,notnull" json:"enrollment_id,omitempty"`
	AssignmentID int64       `bun:"assignment_id,notnull" json:"assignment_id,omitempty"`
	Enrollment   *Enrollment `bun:"rel:belongs-to,join:enrollment_id=id" json:"enrollment,omitempty"`
	Assignment   *Assignment `bun:"rel:belongs-to,join:assignment_id=id" json:"assignment,omitempty"`
}
