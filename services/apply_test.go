package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasforge/logger"
	"nasforge/plan"
	"nasforge/sysinfo"
	"nasforge/truenas"
)

func TestMain(m *testing.M) {
	logger.SetType("dev")
	m.Run()
}

// fakeMiddleware is an in memory stand in for the TrueNAS v2.0 API,
// covering exactly the surface the applier touches.
type fakeMiddleware struct {
	t *testing.T

	users     map[string]*truenas.User
	groups    map[string]*truenas.Group
	datasets  map[string]*truenas.Dataset
	snaptasks []map[string]any
	tunables  []map[string]any

	nextID int
	calls  []string
}

func newFakeMiddleware(t *testing.T) *fakeMiddleware {
	return &fakeMiddleware{
		t:        t,
		users:    map[string]*truenas.User{},
		groups:   map[string]*truenas.Group{},
		datasets: map[string]*truenas.Dataset{},
		nextID:   100,
	}
}

func (f *fakeMiddleware) id() int {
	f.nextID++
	return f.nextID
}

func (f *fakeMiddleware) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v2.0")
	f.calls = append(f.calls, r.Method+" "+path)

	writeJSON := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	decode := func() map[string]any {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		return body
	}

	switch {
	case path == "/core/get_jobs":
		writeJSON([]truenas.Job{})

	case path == "/group" && r.Method == "GET":
		name := r.URL.Query().Get("group")
		if g, ok := f.groups[name]; ok {
			writeJSON([]*truenas.Group{g})
			return
		}
		if gidStr := r.URL.Query().Get("gid"); gidStr != "" {
			gid, _ := strconv.Atoi(gidStr)
			for _, g := range f.groups {
				if g.GID == gid {
					writeJSON([]*truenas.Group{g})
					return
				}
			}
		}
		writeJSON([]*truenas.Group{})
	case path == "/group" && r.Method == "POST":
		body := decode()
		name := body["name"].(string)
		if _, ok := f.groups[name]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		g := &truenas.Group{ID: f.id(), GID: int(body["gid"].(float64)), Name: name}
		f.groups[name] = g
		writeJSON(g.ID)

	case path == "/user" && r.Method == "GET":
		name := r.URL.Query().Get("username")
		if u, ok := f.users[name]; ok {
			writeJSON([]*truenas.User{u})
			return
		}
		writeJSON([]*truenas.User{})
	case path == "/user" && r.Method == "POST":
		body := decode()
		name := body["username"].(string)
		if _, ok := f.users[name]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		u := &truenas.User{
			ID:       f.id(),
			UID:      int(body["uid"].(float64)),
			Username: name,
			Home:     body["home"].(string),
			Shell:    body["shell"].(string),
		}
		f.users[name] = u
		writeJSON(u.ID)
	case strings.HasPrefix(path, "/user/id/") && r.Method == "PUT":
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/user/id/"))
		body := decode()
		for _, u := range f.users {
			if u.ID == id {
				if home, ok := body["home"].(string); ok {
					u.Home = home
				}
				writeJSON(u.ID)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	case strings.HasPrefix(path, "/pool/dataset/id/"):
		name := strings.TrimPrefix(path, "/pool/dataset/id/")
		ds, ok := f.datasets[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == "PUT" {
			body := decode()
			applyDatasetBody(ds, body)
		}
		writeJSON(ds)
	case path == "/pool/dataset" && r.Method == "POST":
		body := decode()
		name := body["name"].(string)
		if _, ok := f.datasets[name]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		ds := &truenas.Dataset{ID: name, Name: name, Mountpoint: "/mnt/" + name}
		applyDatasetBody(ds, body)
		f.datasets[name] = ds
		writeJSON(ds)

	case path == "/pool/snapshottask" && r.Method == "GET":
		dataset := r.URL.Query().Get("dataset")
		out := []map[string]any{}
		for _, task := range f.snaptasks {
			if task["dataset"] == dataset {
				out = append(out, task)
			}
		}
		writeJSON(out)
	case path == "/pool/snapshottask" && r.Method == "POST":
		body := decode()
		body["id"] = float64(f.id())
		f.snaptasks = append(f.snaptasks, body)
		writeJSON(body)

	case path == "/tunable" && r.Method == "GET":
		varName := r.URL.Query().Get("var")
		out := []map[string]any{}
		for _, tun := range f.tunables {
			if varName == "" || tun["var"] == varName {
				out = append(out, tun)
			}
		}
		writeJSON(out)
	case path == "/tunable" && r.Method == "POST":
		body := decode()
		body["id"] = float64(f.id())
		f.tunables = append(f.tunables, body)
		writeJSON(body)
	case strings.HasPrefix(path, "/tunable/id/") && r.Method == "DELETE":
		id, _ := strconv.Atoi(strings.TrimPrefix(path, "/tunable/id/"))
		for i, tun := range f.tunables {
			if int(tun["id"].(float64)) == id {
				f.tunables = append(f.tunables[:i], f.tunables[i+1:]...)
				break
			}
		}
		writeJSON(true)

	case path == "/filesystem/setperm" || path == "/filesystem/mkdir":
		writeJSON(nil)

	default:
		f.t.Errorf("fake middleware: unhandled %s %s", r.Method, path)
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func applyDatasetBody(ds *truenas.Dataset, body map[string]any) {
	get := func(key string) string {
		if v, ok := body[key].(string); ok {
			return v
		}
		return ""
	}
	if v := get("recordsize"); v != "" {
		ds.Recordsize = truenas.Prop{Value: v}
	}
	if v := get("compression"); v != "" {
		ds.Compression = truenas.Prop{Value: v}
	}
	ds.Atime = truenas.Prop{Value: get("atime")}
	ds.Exec = truenas.Prop{Value: get("exec")}
	if v := get("comments"); v != "" {
		ds.Comments = truenas.Prop{Value: v}
	}
}

const testPlanYAML = `
groups:
  - { name: media, gid: 2001 }
  - { name: database, gid: 2006 }
services:
  - { name: plex, uid: 3001, group: media, dataset: tank/apps, home: /mnt/tank/apps/plex, recursive: true }
  - { name: postgres, uid: 3501, group: database, dataset: tank/apps/postgres, home: /mnt/tank/apps/postgres }
datasets:
  - { name: tank/apps, recordsize: 128K, compression: lz4, exec: true }
  - { name: tank/apps/postgres, recordsize: 16K, compression: lz4 }
snapshots:
  - { dataset: tank/apps/postgres, frequency: 15min, retention: { value: 24, unit: HOUR } }
tunables:
  - { var: vm.swappiness, value: "1", type: SYSCTL }
`

func testApplier(t *testing.T) (*Applier, *fakeMiddleware) {
	t.Helper()
	p, err := plan.Parse([]byte(testPlanYAML))
	require.NoError(t, err)

	fake := newFakeMiddleware(t)
	srv := httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(srv.Close)

	client := truenas.NewClient(srv.URL, "test-key", 5*time.Second)
	return &Applier{Plan: p, Client: client, Mode: ModeAPI}, fake
}

func TestApplyAllCreatesEverything(t *testing.T) {
	applier, fake := testApplier(t)

	results, err := applier.ApplyAll()
	require.NoError(t, err)

	assert.Len(t, fake.groups, 2)
	assert.Len(t, fake.users, 2)
	assert.Len(t, fake.datasets, 2)
	assert.Len(t, fake.snaptasks, 1)
	assert.Len(t, fake.tunables, 1)

	created := 0
	for _, r := range results {
		if r.Outcome == OutcomeCreated {
			created++
		}
	}
	// 2 groups + 2 users + 2 datasets + 1 snapshot + 1 tunable
	assert.Equal(t, 8, created)

	// homes got assigned after datasets existed
	assert.Equal(t, "/mnt/tank/apps/plex", fake.users["plex"].Home)
	assert.Equal(t, "/mnt/tank/apps/postgres", fake.users["postgres"].Home)
}

func TestApplyAllPhaseOrdering(t *testing.T) {
	applier, fake := testApplier(t)

	_, err := applier.ApplyAll()
	require.NoError(t, err)

	pos := func(call string) int {
		for i, c := range fake.calls {
			if c == call {
				return i
			}
		}
		t.Fatalf("call %q never happened", call)
		return -1
	}

	groupCreate := pos("POST /group")
	userCreate := pos("POST /user")
	datasetCreate := pos("POST /pool/dataset")
	setperm := pos("POST /filesystem/setperm")
	snaptask := pos("POST /pool/snapshottask")
	tunable := pos("POST /tunable")

	assert.Less(t, groupCreate, userCreate, "groups before users")
	assert.Less(t, userCreate, datasetCreate, "users before datasets")
	assert.Less(t, datasetCreate, setperm, "datasets before chown")
	assert.Less(t, setperm, snaptask, "homes before snapshot tasks")
	assert.Less(t, snaptask, tunable, "snapshot tasks before tunables")
}

func TestApplyAllIsIdempotent(t *testing.T) {
	applier, fake := testApplier(t)

	_, err := applier.ApplyAll()
	require.NoError(t, err)

	results, err := applier.ApplyAll()
	require.NoError(t, err)

	for _, r := range results {
		assert.Equal(t, OutcomeUnchanged, r.Outcome, "%s %s should be unchanged on second apply", r.Kind, r.Name)
	}
	assert.Len(t, fake.groups, 2)
	assert.Len(t, fake.users, 2)
	assert.Len(t, fake.snaptasks, 1)
	assert.Len(t, fake.tunables, 1)
}

func TestDryRunMutatesNothing(t *testing.T) {
	applier, fake := testApplier(t)
	applier.DryRun = true

	results, err := applier.ApplyAll()
	require.NoError(t, err)

	assert.Empty(t, fake.groups)
	assert.Empty(t, fake.users)
	assert.Empty(t, fake.datasets)
	assert.Empty(t, fake.snaptasks)
	assert.Empty(t, fake.tunables)

	for _, r := range results {
		assert.Equal(t, OutcomeSkipped, r.Outcome)
	}
}

func TestApplyConvergesDatasetProperties(t *testing.T) {
	applier, fake := testApplier(t)

	_, err := applier.ApplyAll()
	require.NoError(t, err)

	// drift the live recordsize behind the plan's back
	fake.datasets["tank/apps/postgres"].Recordsize = truenas.Prop{Value: "128K"}

	require.NoError(t, applier.ApplyDatasets())

	var row RowResult
	for _, r := range applier.Results() {
		if r.Kind == "dataset" && r.Name == "tank/apps/postgres" {
			row = r
		}
	}
	assert.Equal(t, OutcomeUpdated, row.Outcome)
	assert.Equal(t, "16K", fake.datasets["tank/apps/postgres"].Recordsize.Value)
}

func TestApplyTunableReplacesChangedValue(t *testing.T) {
	applier, fake := testApplier(t)

	_, err := applier.ApplyAll()
	require.NoError(t, err)

	fake.tunables[0]["value"] = "60"

	require.NoError(t, applier.ApplyTunables())

	require.Len(t, fake.tunables, 1)
	assert.Equal(t, "1", fake.tunables[0]["value"], "tunable deleted and recreated with the plan value")
}

func TestApplyAutoTunableUsesHostFacts(t *testing.T) {
	applier, fake := testApplier(t)
	applier.Plan.Tunables = []plan.Tunable{
		{Var: "zfs_arc_max", Value: "auto", Type: "ZFS"},
	}
	applier.Facts = &sysinfo.HostFacts{TotalRAM: 32 << 30, CPUCores: 8}

	require.NoError(t, applier.ApplyTunables())

	require.Len(t, fake.tunables, 1)
	assert.Equal(t, strconv.FormatUint(16<<30, 10), fake.tunables[0]["value"])
}

func TestDriftReportsMissingAndChanged(t *testing.T) {
	applier, fake := testApplier(t)

	_, err := applier.ApplyAll()
	require.NoError(t, err)

	items, err := applier.Drift()
	require.NoError(t, err)
	assert.Empty(t, items, "freshly applied system has no drift")

	delete(fake.users, "plex")
	fake.datasets["tank/apps"].Recordsize = truenas.Prop{Value: "1M"}

	items, err = applier.Drift()
	require.NoError(t, err)

	byKey := map[string]DriftItem{}
	for _, it := range items {
		byKey[it.Kind+"/"+it.Name+"/"+it.Field] = it
	}
	assert.Contains(t, byKey, "user/plex/presence")
	rec, ok := byKey["dataset/tank/apps/recordsize"]
	require.True(t, ok)
	assert.Equal(t, "128K", rec.Want)
	assert.Equal(t, "1M", rec.Have)
}

func TestLocalModeSkipsMiddlewareOnlyRows(t *testing.T) {
	p, err := plan.Parse([]byte(testPlanYAML))
	require.NoError(t, err)

	applier := &Applier{Plan: p, Mode: ModeLocal}
	require.NoError(t, applier.ApplySnapshots())
	require.NoError(t, applier.ApplyTunables())

	for _, r := range applier.Results() {
		assert.Equal(t, OutcomeSkipped, r.Outcome)
	}
	assert.Len(t, applier.Results(), 2)
}
