package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/aquatrack/aquatrack/core/task"
)

func Test_taskApi_move(t *testing.T) {
	ta := setup(t)
	staff := ta.createUser(t, "Jane Staff", "janestaff", "jane@test.cd", "LordOfTheRings", false, true)
	ta.createStaffOrg(t, staff)
	outsider := ta.createUser(t, "Out Sider", "outsider", "out@test.cd", "LordOfTheRings", false, true)
	ta.createStaffOrg(t, outsider)
	token := getToken(t, staff)

	createTask := func(t *testing.T, start time.Time, end null.Time) task.ServiceTask {
		t.Helper()
		body := marchallObj(t, task.NewTask{
			Title:     "Replace sand filter",
			StartDate: start,
			EndDate:   end,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks", token, body)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating task failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var created task.ServiceTask
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("unmarshalling ServiceTask failed: %v", err)
		}
		return created
	}

	day := func(d int) time.Time { return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC) }

	t.Run("Happy path keeps the span", func(t *testing.T) {
		tk := createTask(t, day(10), null.TimeFrom(day(12)))

		body := marchallObj(t, map[string]string{"source_date": "2026-09-11", "target_date": "2026-09-14"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks/"+tk.ID+"/move", token, body)
		ta.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"ok": true, "new_start": "2026-09-13", "new_end": "2026-09-15"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Completed task cannot move", func(t *testing.T) {
		tk := createTask(t, day(10), null.Time{})

		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks/"+tk.ID+"/complete", token)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("completing task failed! code = %v; body %s", rec.Code, rec.Body.String())
		}

		body := marchallObj(t, map[string]string{"target_date": "2026-09-14"})
		req, rec = newAuthRequest(http.MethodPost, "/v1/tasks/"+tk.ID+"/move", token, body)
		ta.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, map[string]string{"error": "completed tasks cannot be moved", "reason": "conflict"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Missing target date", func(t *testing.T) {
		tk := createTask(t, day(10), null.Time{})

		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks/"+tk.ID+"/move", token, marchallObj(t, map[string]string{}))
		ta.app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"target_date": "this field is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Hidden across organizations", func(t *testing.T) {
		tk := createTask(t, day(10), null.Time{})

		body := marchallObj(t, map[string]string{"target_date": "2026-09-14"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/tasks/"+tk.ID+"/move", getToken(t, outsider), body)
		ta.app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
