package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/shulehq/shule/apps/api/echo"
	"github.com/shulehq/shule/core/access"
	"github.com/shulehq/shule/core/engineering"
)

func Test_engineeringApi_reviewSubmission(t *testing.T) {
	student, sm := createUser(t, "Fundi", "fundi@shule.test", "Passw0rd!", access.RoleStudent, access.ScopePod, "pod-eng")
	teacher, tm := createUser(t, "Mshauri", "mshauri@shule.test", "Passw0rd!", access.RoleTeacher, access.ScopePod, "pod-eng")
	inspector, im := createUser(t, "Mkaguzi Ujenzi", "mkaguzi.ujenzi@shule.test", "Passw0rd!", access.RoleInspector, access.ScopeDistrict, "")
	studentToken := getToken(t, student, sm)
	teacherToken := getToken(t, teacher, tm)
	inspectorToken := getToken(t, inspector, im)

	project := engRepo.AddProject(engineering.Project{
		PhaseCode:   "G8",
		ProjectCode: "G8_PHONE_BUILD",
		ProjectName: "Kujenga Simu",
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/engineering/submissions", studentToken,
		marshallObj(t, engineering.NewSubmission{ProjectID: project.ID, Documentation: "wiring notes"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %d; want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var sub engineering.ProjectSubmission
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshalling submission: %v", err)
	}
	if sub.Status != engineering.StatusSubmitted {
		t.Fatalf("Status = %q; want %q", sub.Status, engineering.StatusSubmitted)
	}

	reviewPath := "/v1/engineering/submissions/" + sub.ID + "/review"
	approveBody := marshallObj(t, echoapi.ReviewRequest{Status: engineering.StatusApproved})

	tests := []httpTest{
		{
			name: "student cannot review", method: http.MethodPut, path: reviewPath,
			token: studentToken, body: approveBody,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "inspector cannot review", method: http.MethodPut, path: reviewPath,
			token: inspectorToken, body: approveBody,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errReadOnly),
		},
		{
			name: "unknown status rejected", method: http.MethodPut, path: reviewPath,
			token: teacherToken, body: marshallObj(t, echoapi.ReviewRequest{Status: "perfect"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "unknown submission status"}),
		},
		{
			name: "teacher approves the submission", method: http.MethodPut, path: reviewPath,
			token: teacherToken, body: approveBody,
			wantCode: http.StatusOK,
		},
		{
			name: "approved submissions are final", method: http.MethodPut, path: reviewPath,
			token: teacherToken, body: approveBody,
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: "submission already approved"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/engineering/submissions?student_id="+student.ID, teacherToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query code = %d; want %d", rec.Code, http.StatusOK)
	}
	var subs []engineering.ProjectSubmission
	if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
		t.Fatalf("unmarshalling submissions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("submissions = %d; want 1", len(subs))
	}
	if subs[0].Status != engineering.StatusApproved || subs[0].MentorID != teacher.ID {
		t.Errorf("reviewed submission = %+v; want approved by %s", subs[0], teacher.ID)
	}
}
