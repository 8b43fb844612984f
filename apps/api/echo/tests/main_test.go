package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	. "github.com/aquatrack/aquatrack/apps/api/echo"
	"github.com/aquatrack/aquatrack/core"
	"github.com/aquatrack/aquatrack/core/notification"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/schedule"
	"github.com/aquatrack/aquatrack/core/task"
	"github.com/aquatrack/aquatrack/core/user"
	emailsvc "github.com/aquatrack/aquatrack/services/email"
	logsvc "github.com/aquatrack/aquatrack/services/logger"
	inmemdb "github.com/aquatrack/aquatrack/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func TestMain(m *testing.M) {
	// error responses must use the production envelope
	core.Conf.Debug = false
	core.Conf.TestMode = true
	os.Exit(m.Run())
}

type testApp struct {
	app Server

	usrRepo  user.Repository
	orgRepo  org.Repository
	poolRepo pool.Repository
	planRepo schedule.Repository

	usrSvc *user.Service
	orgSvc *org.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	orgRepo := inmemdb.NewOrgRepository(db)
	poolRepo := inmemdb.NewPoolRepository(db)
	planRepo := inmemdb.NewVisitPlanRepository(db)
	taskRepo := inmemdb.NewTaskRepository(db)
	notifRepo := inmemdb.NewNotificationRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewService(usrRepo, mailSvc)
	orgSvc := org.NewService(orgRepo)
	poolSvc := pool.NewService(poolRepo)
	taskSvc := task.NewService(taskRepo)
	schedSvc := schedule.NewService(planRepo, poolRepo, orgSvc, taskSvc)
	notifSvc := notification.NewService(notifRepo)
	notifGen := notification.NewGenerator(logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0)), notifSvc, poolRepo, orgRepo)

	// set up server
	app := NewServer(
		&Options{
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			OrgSvc:         orgSvc,
			PoolSvc:        poolSvc,
			ScheduleSvc:    schedSvc,
			TaskSvc:        taskSvc,
			NotifSvc:       notifSvc,
			NotifGen:       notifGen,
		},
	)

	return &testApp{
		app:      app,
		usrRepo:  usrRepo,
		orgRepo:  orgRepo,
		poolRepo: poolRepo,
		planRepo: planRepo,
		usrSvc:   usrSvc,
		orgSvc:   orgSvc,
	}
}

// createUser seeds a user with a known password straight through the repo.
func (ta *testApp) createUser(t *testing.T, name, uname, email, pwd string, superuser, active bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:        name,
		Username:    uname,
		Email:       email,
		IsActive:    active,
		IsSuperuser: superuser,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := ta.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// createStaffOrg seeds an organization on an active trial with the user as staff.
func (ta *testApp) createStaffOrg(t *testing.T, usr user.User) org.Organization {
	t.Helper()
	o, err := ta.orgRepo.CreateOrganization(context.Background(), org.Organization{
		Name:           "Crystal Pools",
		TrialStartedAt: null.TimeFrom(time.Now().UTC()),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateOrganization() failed: %v", err)
	}
	if _, err := ta.orgRepo.CreateOrganizationAccess(context.Background(), org.OrganizationAccess{
		UserID:         usr.ID,
		OrganizationID: o.ID,
		Role:           org.RoleAdmin,
	}); err != nil {
		t.Fatalf("CreateOrganizationAccess() failed: %v", err)
	}
	return o
}

func (ta *testApp) createPool(t *testing.T, p pool.Pool) pool.Pool {
	t.Helper()
	created, err := ta.poolRepo.CreatePool(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePool() failed: %v", err)
	}
	return created
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
