// Package dummydb provides in-memory repositories for tests.
package dummydb

import (
	"sync"

	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/curriculum"
	"github.com/shulehq/shule/core/device"
	"github.com/shulehq/shule/core/engineering"
	"github.com/shulehq/shule/core/learning"
	"github.com/shulehq/shule/core/org"
	"github.com/shulehq/shule/core/user"
)

type (
	DB struct {
		user        *userTable
		org         *orgTable
		curriculum  *curriculumTable
		learning    *learningTable
		audit       *auditTable
		device      *deviceTable
		engineering *engineeringTable
	}

	userTable struct {
		sync.RWMutex
		users       map[string]*user.User
		memberships map[string]*user.Membership
	}

	orgTable struct {
		sync.RWMutex
		districts map[string]*org.District
		schools   map[string]*org.School
		campuses  map[string]*org.Campus
		pods      map[string]*org.Pod
	}

	curriculumTable struct {
		sync.RWMutex
		courses     map[string]*curriculum.Course
		versions    map[string]*curriculum.CourseVersion
		units       map[string]*curriculum.Unit
		lessons     map[string]*curriculum.Lesson
		assignments map[string]*curriculum.PodCourseAssignment
		approvals   map[string]*curriculum.ApprovalRecord
	}

	learningTable struct {
		sync.RWMutex
		enrollments map[string]*learning.Enrollment
		submissions map[string]*learning.Submission
		feedback    map[string]*learning.Feedback
		mastery     map[string]*learning.MasteryRecord
		// teacher -> pods, mirrors active pod memberships
		teacherPods map[string][]string
	}

	auditTable struct {
		sync.RWMutex
		entries []audit.Entry
	}

	deviceTable struct {
		sync.RWMutex
		devices map[string]*device.Device
		events  map[string]*device.MaintenanceEvent
	}

	engineeringTable struct {
		sync.RWMutex
		projects    map[string]*engineering.Project
		submissions map[string]*engineering.ProjectSubmission
		sessions    map[string]*engineering.MentorshipSession
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{
			users:       make(map[string]*user.User),
			memberships: make(map[string]*user.Membership),
		},
		org: &orgTable{
			districts: make(map[string]*org.District),
			schools:   make(map[string]*org.School),
			campuses:  make(map[string]*org.Campus),
			pods:      make(map[string]*org.Pod),
		},
		curriculum: &curriculumTable{
			courses:     make(map[string]*curriculum.Course),
			versions:    make(map[string]*curriculum.CourseVersion),
			units:       make(map[string]*curriculum.Unit),
			lessons:     make(map[string]*curriculum.Lesson),
			assignments: make(map[string]*curriculum.PodCourseAssignment),
			approvals:   make(map[string]*curriculum.ApprovalRecord),
		},
		learning: &learningTable{
			enrollments: make(map[string]*learning.Enrollment),
			submissions: make(map[string]*learning.Submission),
			feedback:    make(map[string]*learning.Feedback),
			mastery:     make(map[string]*learning.MasteryRecord),
			teacherPods: make(map[string][]string),
		},
		audit: &auditTable{},
		device: &deviceTable{
			devices: make(map[string]*device.Device),
			events:  make(map[string]*device.MaintenanceEvent),
		},
		engineering: &engineeringTable{
			projects:    make(map[string]*engineering.Project),
			submissions: make(map[string]*engineering.ProjectSubmission),
			sessions:    make(map[string]*engineering.MentorshipSession),
		},
	}
	return db, nil
}
