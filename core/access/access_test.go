package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAllowed_failClosed(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		resource Resource
		action   Action
	}{
		{"unknown role", Role("janitor"), ResourceCourse, ActionRead},
		{"unknown resource", RoleTeacher, Resource("cafeteria"), ActionRead},
		{"unknown action", RoleTeacher, ResourceCourse, Action("linger")},
		{"role without resource entry", RoleStudent, ResourceAudit, ActionRead},
		{"resource without action entry", RoleStudent, ResourceCourse, ActionDelete},
		{"empty everything", Role(""), Resource(""), Action("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsAllowed(tt.role, tt.resource, tt.action) {
				t.Errorf("IsAllowed(%q, %q, %q) = true; want false", tt.role, tt.resource, tt.action)
			}
		})
	}
}

func TestIsAllowed_matrix(t *testing.T) {
	tests := []struct {
		role     Role
		resource Resource
		action   Action
		want     bool
	}{
		{RoleStudent, ResourceLesson, ActionRead, true},
		{RoleStudent, ResourceSubmission, ActionCreate, true},
		{RoleStudent, ResourceLesson, ActionUpdate, false},
		{RoleTeacher, ResourceSubmission, ActionUpdate, true},
		{RoleTeacher, ResourceStudent, ActionDelete, false},
		{RolePodLead, ResourceStudent, ActionUpdate, true},
		{RoleSchoolAdmin, ResourceCurriculum, ActionApprove, true},
		{RoleSchoolAdmin, ResourceAudit, ActionRead, false},
		{RoleDistrictAdmin, ResourceAudit, ActionExport, true},
		{RoleDistrictAdmin, ResourceDevice, ActionCreate, true},
		{RoleInspector, ResourceAudit, ActionRead, true},
		{RoleInspector, ResourceCurriculum, ActionRead, true},
	}
	for _, tt := range tests {
		got := IsAllowed(tt.role, tt.resource, tt.action)
		if got != tt.want {
			t.Errorf("IsAllowed(%q, %q, %q) = %v; want %v", tt.role, tt.resource, tt.action, got, tt.want)
		}
	}
}

// The inspector must be denied every non-read action on every resource, even
// where the matrix carries wider entries (inspection create/update).
func TestIsAllowed_inspectorHardRule(t *testing.T) {
	resources := []Resource{
		ResourceStudent, ResourceTeacher, ResourceCourse, ResourceLesson,
		ResourceSubmission, ResourceMastery, ResourceCurriculum, ResourceAudit,
		ResourceInspection, ResourceAdmin, ResourceDevice, ResourceEngineering,
	}
	actions := []Action{ActionCreate, ActionUpdate, ActionDelete, ActionExport, ActionApprove}

	for _, res := range resources {
		for _, act := range actions {
			if IsAllowed(RoleInspector, res, act) {
				t.Errorf("IsAllowed(inspector, %q, %q) = true; want false", res, act)
			}
		}
	}

	// the matrix itself still carries the wider inspection entries
	perms := RolePermissions(RoleInspector)
	assert.Contains(t, perms[ResourceInspection], ActionCreate)
}

// Mentor review must be reachable: every reviewing role holds approve on
// engineering; students and inspectors do not.
func TestIsAllowed_engineeringReview(t *testing.T) {
	reviewers := []Role{RoleTeacher, RolePodLead, RoleSchoolAdmin, RoleDistrictAdmin}
	for _, role := range reviewers {
		if !IsAllowed(role, ResourceEngineering, ActionApprove) {
			t.Errorf("IsAllowed(%q, engineering, approve) = false; want true", role)
		}
	}
	for _, role := range []Role{RoleStudent, RoleInspector} {
		if IsAllowed(role, ResourceEngineering, ActionApprove) {
			t.Errorf("IsAllowed(%q, engineering, approve) = true; want false", role)
		}
	}
}

func TestCanMutate(t *testing.T) {
	for _, role := range AllRoles {
		want := role != RoleInspector
		if got := CanMutate(role); got != want {
			t.Errorf("CanMutate(%q) = %v; want %v", role, got, want)
		}
	}
}

func TestRolePermissions_isolatedCopy(t *testing.T) {
	perms := RolePermissions(RoleStudent)
	perms[ResourceAudit] = []Action{ActionRead}
	perms[ResourceCourse][0] = ActionDelete

	if IsAllowed(RoleStudent, ResourceAudit, ActionRead) {
		t.Error("mutating RolePermissions result leaked into the matrix")
	}
	if IsAllowed(RoleStudent, ResourceCourse, ActionDelete) {
		t.Error("mutating RolePermissions result leaked into the matrix")
	}

	assert.Empty(t, RolePermissions(Role("nobody")))
}
