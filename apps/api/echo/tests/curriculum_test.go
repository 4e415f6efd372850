package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/curriculum"
)

// buildAssignedCourse seeds an approved course version with lessons and
// assigns it to the pod. Returns the lessons in curriculum order.
func buildAssignedCourse(t *testing.T, podID, subjectCode string, assign bool) []curriculum.Lesson {
	t.Helper()
	ctx := context.Background()

	crs, err := curriculumSvc.CreateCourse(ctx, curriculum.NewCourse{SubjectCode: subjectCode, GradeBand: "4-6", Title: "Course " + subjectCode})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	ver, err := curriculumSvc.CreateVersion(ctx, crs.ID, "author-1", curriculum.NewVersion{})
	if err != nil {
		t.Fatalf("CreateVersion(): %v", err)
	}
	unit, err := curriculumSvc.AddUnit(ctx, ver.ID, curriculum.NewUnit{UnitNumber: 1, Title: "Unit 1"})
	if err != nil {
		t.Fatalf("AddUnit(): %v", err)
	}

	lessons := make([]curriculum.Lesson, 0, 2)
	for i := 1; i <= 2; i++ {
		lsn, err := curriculumSvc.AddLesson(ctx, unit.ID, curriculum.NewLesson{
			LessonNumber:  i,
			Title:         "Lesson",
			CanonicalText: "text",
		})
		if err != nil {
			t.Fatalf("AddLesson(): %v", err)
		}
		lessons = append(lessons, lsn)
	}

	if _, err = curriculumSvc.ApproveVersion(ctx, ver.ID, "approver-1", "ok"); err != nil {
		t.Fatalf("ApproveVersion(): %v", err)
	}
	if assign {
		if _, err = curriculumSvc.AssignCourseToPod(ctx, podID, curriculum.NewAssignment{CourseVersionID: ver.ID}); err != nil {
			t.Fatalf("AssignCourseToPod(): %v", err)
		}
	}
	return lessons
}

func Test_curriculumApi_lessonAccess(t *testing.T) {
	ctx := context.Background()

	student, sm := createUser(t, "Juma", "juma@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-crs")
	teacher, tm := createUser(t, "Mwalimu", "mwalimu@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-crs")
	if _, err := learningSvc.Enroll(ctx, student.ID, "pod-crs"); err != nil {
		t.Fatalf("Enroll(): %v", err)
	}

	assigned := buildAssignedCourse(t, "pod-crs", "kiswahili", true)
	other := buildAssignedCourse(t, "", "historia", false)

	studentToken := getToken(t, student, sm)
	teacherToken := getToken(t, teacher, tm)

	tests := []httpTest{
		{
			name: "student reads an assigned lesson", path: "/v1/lessons/" + assigned[0].ID, token: studentToken,
			wantCode: http.StatusOK, wantData: marshallObj(t, assigned[0]),
		},
		{
			name: "guessed lesson id outside the pod is denied", path: "/v1/lessons/" + other[0].ID, token: studentToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "lesson is not assigned to the student's pod"}),
		},
		{
			name: "staff read any lesson directly", path: "/v1/lessons/" + other[0].ID, token: teacherToken,
			wantCode: http.StatusOK, wantData: marshallObj(t, other[0]),
		},
		{
			name: "unknown lesson id", path: "/v1/lessons/nope", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "curriculum record not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// student lesson reads leave a trace; staff reads do not
	reads := auditEntries(t, audit.Filter{ActorID: student.ID, Action: string(access.ActionRead), EntityType: "lesson"})
	if len(reads) != 1 {
		t.Errorf("student lesson read entries = %d; want 1", len(reads))
	}
	reads = auditEntries(t, audit.Filter{ActorID: teacher.ID, EntityType: "lesson"})
	if len(reads) != 0 {
		t.Errorf("teacher lesson read entries = %d; want 0", len(reads))
	}
}

func Test_curriculumApi_myLessons(t *testing.T) {
	ctx := context.Background()

	enrolled, em := createUser(t, "Neema", "neema@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-my")
	idle, im := createUser(t, "Imani", "imani@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-idle")
	outsider, om := createUser(t, "Pendo", "pendo@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "")

	if _, err := learningSvc.Enroll(ctx, enrolled.ID, "pod-my"); err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
	if _, err := learningSvc.Enroll(ctx, idle.ID, "pod-idle"); err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
	lessons := buildAssignedCourse(t, "pod-my", "sayansi", true)

	tests := []httpTest{
		{
			name: "assigned curriculum in order", token: getToken(t, enrolled, em),
			wantCode: http.StatusOK, wantData: marshallObj(t, lessons),
		},
		{
			name: "enrolled with no curriculum gets an empty list", token: getToken(t, idle, im),
			wantCode: http.StatusOK, wantData: marshallObj(t, []curriculum.Lesson{}),
		},
		{
			name: "not enrolled is denied, not empty", token: getToken(t, outsider, om),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "student is not enrolled in a pod"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/students/me/lessons", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
