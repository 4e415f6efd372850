package access

// Role is one of the six organizational roles a membership can carry.
type Role string

const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RolePodLead       Role = "pod_lead"
	RoleSchoolAdmin   Role = "school_admin"
	RoleDistrictAdmin Role = "district_admin"
	RoleInspector     Role = "inspector"
)

// AllRoles lists every known role, in escalation order.
var AllRoles = []Role{RoleStudent, RoleTeacher, RolePodLead, RoleSchoolAdmin, RoleDistrictAdmin, RoleInspector}

func KnownRole(r Role) bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Resource is a protected resource type.
type Resource string

const (
	ResourceStudent     Resource = "student"
	ResourceTeacher     Resource = "teacher"
	ResourceCourse      Resource = "course"
	ResourceLesson      Resource = "lesson"
	ResourceSubmission  Resource = "submission"
	ResourceMastery     Resource = "mastery"
	ResourceCurriculum  Resource = "curriculum"
	ResourceAudit       Resource = "audit"
	ResourceInspection  Resource = "inspection"
	ResourceAdmin       Resource = "admin"
	ResourceDevice      Resource = "device"
	ResourceEngineering Resource = "engineering"
)

// Action is an operation on a Resource.
type Action string

const (
	ActionCreate  Action = "create"
	ActionRead    Action = "read"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionExport  Action = "export"
	ActionApprove Action = "approve"
)

// permissions maps role -> resource -> permitted actions.
// It is built once and must never be mutated after init; it is only
// reachable through IsAllowed and RolePermissions.
var permissions = map[Role]map[Resource][]Action{
	RoleStudent: {
		ResourceCourse:      {ActionRead},
		ResourceLesson:      {ActionRead},
		ResourceSubmission:  {ActionCreate, ActionRead, ActionUpdate}, // own submissions only
		ResourceMastery:     {ActionRead},
		ResourceEngineering: {ActionCreate, ActionRead, ActionUpdate},
	},
	RoleTeacher: {
		ResourceStudent:     {ActionRead}, // students in their pods
		ResourceCourse:      {ActionRead},
		ResourceLesson:      {ActionRead, ActionUpdate},
		ResourceSubmission:  {ActionRead, ActionUpdate}, // grading
		ResourceMastery:     {ActionRead, ActionUpdate},
		ResourceCurriculum:  {ActionRead},
		ResourceDevice:      {ActionRead},
		ResourceEngineering: {ActionRead, ActionUpdate, ActionApprove}, // mentor review
	},
	RolePodLead: {
		ResourceStudent:     {ActionRead, ActionUpdate},
		ResourceTeacher:     {ActionRead},
		ResourceCourse:      {ActionRead},
		ResourceLesson:      {ActionRead, ActionUpdate},
		ResourceSubmission:  {ActionRead, ActionUpdate},
		ResourceMastery:     {ActionRead, ActionUpdate},
		ResourceCurriculum:  {ActionRead},
		ResourceDevice:      {ActionRead},
		ResourceEngineering: {ActionRead, ActionUpdate, ActionApprove},
	},
	RoleSchoolAdmin: {
		ResourceStudent:     {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceTeacher:     {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceCourse:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceLesson:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceSubmission:  {ActionRead, ActionUpdate},
		ResourceMastery:     {ActionRead, ActionUpdate},
		ResourceCurriculum:  {ActionCreate, ActionRead, ActionUpdate, ActionApprove},
		ResourceAdmin:       {ActionRead, ActionUpdate},
		ResourceDevice:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceEngineering: {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove},
	},
	RoleDistrictAdmin: {
		ResourceStudent:     {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceTeacher:     {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceCourse:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceLesson:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceSubmission:  {ActionRead, ActionUpdate},
		ResourceMastery:     {ActionRead, ActionUpdate},
		ResourceCurriculum:  {ActionCreate, ActionRead, ActionUpdate, ActionApprove},
		ResourceAdmin:       {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceAudit:       {ActionRead, ActionExport},
		ResourceDevice:      {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceEngineering: {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove},
	},
	RoleInspector: {
		// read-only, fully audited; the hard rule in IsAllowed denies anything
		// else even if an entry below were ever widened.
		ResourceStudent:    {ActionRead}, // anonymized views only
		ResourceCourse:     {ActionRead},
		ResourceLesson:     {ActionRead},
		ResourceCurriculum: {ActionRead},
		ResourceMastery:    {ActionRead},
		ResourceAudit:      {ActionRead, ActionExport},
		ResourceInspection: {ActionRead, ActionCreate, ActionUpdate},
	},
}

// IsAllowed reports whether role may perform action on resource.
// Unknown roles, resources or actions are denied; the function never errors
// so an access check cannot be bypassed by a caller's error handling.
func IsAllowed(role Role, resource Resource, action Action) bool {
	// inspector is globally read-only, regardless of matrix contents
	if role == RoleInspector && action != ActionRead {
		return false
	}

	resources, ok := permissions[role]
	if !ok {
		return false
	}
	actions, ok := resources[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// IsInspector reports whether role is the read-only, fully audited inspector.
func IsInspector(role Role) bool {
	return role == RoleInspector
}

// CanMutate reports whether role may perform any mutating action at all.
func CanMutate(role Role) bool {
	return role != RoleInspector
}

// RolePermissions returns a copy of the permission matrix slice for role.
func RolePermissions(role Role) map[Resource][]Action {
	resources, ok := permissions[role]
	if !ok {
		return map[Resource][]Action{}
	}
	out := make(map[Resource][]Action, len(resources))
	for res, actions := range resources {
		cp := make([]Action, len(actions))
		copy(cp, actions)
		out[res] = cp
	}
	return out
}
