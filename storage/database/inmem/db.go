// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"strconv"
	"sync"

	"github.com/aquatrack/aquatrack/core/notification"
	"github.com/aquatrack/aquatrack/core/org"
	"github.com/aquatrack/aquatrack/core/pool"
	"github.com/aquatrack/aquatrack/core/schedule"
	"github.com/aquatrack/aquatrack/core/task"
	"github.com/aquatrack/aquatrack/core/user"
)

type DB struct {
	mutex   sync.RWMutex
	pkCount int

	users        map[string]*user.User
	orgs         map[string]*org.Organization
	clients      map[string]*org.Client
	orgAccesses  map[string]*org.OrganizationAccess
	poolAccesses map[string]*org.PoolAccess
	pools        map[string]*pool.Pool
	readings     map[string]*pool.WaterReading
	norms        map[string]*pool.WaterNorms // keyed by organization ID
	plans        map[string]*schedule.VisitPlan
	tasks        map[string]*task.ServiceTask
	taskChanges  []*task.Change
	notifs       map[string]*notification.Notification
}

func NewDB() *DB {
	return &DB{
		users:        make(map[string]*user.User),
		orgs:         make(map[string]*org.Organization),
		clients:      make(map[string]*org.Client),
		orgAccesses:  make(map[string]*org.OrganizationAccess),
		poolAccesses: make(map[string]*org.PoolAccess),
		pools:        make(map[string]*pool.Pool),
		readings:     make(map[string]*pool.WaterReading),
		norms:        make(map[string]*pool.WaterNorms),
		plans:        make(map[string]*schedule.VisitPlan),
		tasks:        make(map[string]*task.ServiceTask),
		notifs:       make(map[string]*notification.Notification),
	}
}

// nextPK returns sequential string IDs so tests get stable ordering.
func (db *DB) nextPK() string {
	db.pkCount++
	return strconv.Itoa(db.pkCount)
}
