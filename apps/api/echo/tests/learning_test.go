package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/audit"
	"github.com/shulehq/shule/core/learning"
)

func Test_learningApi_submissionFlow(t *testing.T) {
	ctx := context.Background()

	student, sm := createUser(t, "Baraka", "baraka@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-sub")
	peer, pm := createUser(t, "Rafiki", "rafiki@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-sub")
	teacher, tm := createUser(t, "Mlezi", "mlezi@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-sub")
	outsideTeacher, om := createUser(t, "Mgeni", "mgeni@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-far")

	for _, id := range []string{student.ID, peer.ID} {
		if _, err := learningSvc.Enroll(ctx, id, "pod-sub"); err != nil {
			t.Fatalf("Enroll(): %v", err)
		}
	}
	learnRepo.SetTeacherPods(teacher.ID, "pod-sub")
	learnRepo.SetTeacherPods(outsideTeacher.ID, "pod-far")

	lessons := buildAssignedCourse(t, "pod-sub", "jiografia", true)

	studentToken := getToken(t, student, sm)
	peerToken := getToken(t, peer, pm)
	teacherToken := getToken(t, teacher, tm)
	outsideToken := getToken(t, outsideTeacher, om)

	// student submits work for an assigned lesson
	body := marshallObj(t, learning.NewSubmission{LessonID: lessons[0].ID, Content: map[string]interface{}{"answer": "42"}})
	req, rec := newAuthRequest(http.MethodPost, "/v1/submissions", studentToken, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %v; want %v (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var sub learning.Submission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshalling Submission: %v", err)
	}
	if sub.Status != learning.SubmissionSubmitted {
		t.Errorf("Status = %q; want %q", sub.Status, learning.SubmissionSubmitted)
	}

	// another student cannot read it
	tt := httpTest{
		name: "peer denied", wantCode: http.StatusForbidden,
		wantData: marshallObj(t, httpErr{Error: "submission belongs to another student"}),
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID, peerToken)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// a teacher outside the pod cannot grade it
	fbBody := marshallObj(t, learning.NewFeedback{Comment: "Vizuri sana"})
	tt = httpTest{
		name: "outside teacher denied", wantCode: http.StatusForbidden,
		wantData: marshallObj(t, httpErr{Error: "student is not in one of the teacher's pods"}),
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/feedback", outsideToken, fbBody)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// the pod's teacher grades it
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/feedback", teacherToken, fbBody)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("feedback code = %v; want %v (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var fb learning.Feedback
	if err := json.Unmarshal(rec.Body.Bytes(), &fb); err != nil {
		t.Fatalf("unmarshalling Feedback: %v", err)
	}
	if fb.TeacherID != teacher.ID {
		t.Errorf("TeacherID = %q; want %q", fb.TeacherID, teacher.ID)
	}

	// the submission is now graded and the feedback is listed
	req, rec = newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID, studentToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve code = %v; want %v", rec.Code, http.StatusOK)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshalling Submission: %v", err)
	}
	if sub.Status != learning.SubmissionGraded {
		t.Errorf("Status = %q; want %q", sub.Status, learning.SubmissionGraded)
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID+"/feedback", studentToken)
	app.ServeHTTP(rec, req)
	var fbs []learning.Feedback
	if err := json.Unmarshal(rec.Body.Bytes(), &fbs); err != nil {
		t.Fatalf("unmarshalling []Feedback: %v", err)
	}
	if len(fbs) != 1 {
		t.Errorf("feedback count = %d; want 1", len(fbs))
	}

	// grading leaves a trace in the audit trail
	graded := auditEntries(t, audit.Filter{
		ActorID:    teacher.ID,
		Action:     string(access.ActionUpdate),
		EntityType: "submission",
	})
	if len(graded) != 1 {
		t.Fatalf("teacher grading entries = %d; want 1", len(graded))
	}
	if graded[0].EntityID != sub.ID {
		t.Errorf("EntityID = %q; want %q", graded[0].EntityID, sub.ID)
	}
}
