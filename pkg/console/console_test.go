package console

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspect-console/aspect/pkg/catalog"
	"github.com/aspect-console/aspect/pkg/client"
	"github.com/aspect-console/aspect/pkg/record"
	"github.com/aspect-console/aspect/pkg/registry"
	"github.com/aspect-console/aspect/pkg/routetree"
)

func recordString(s string) record.Value { return record.String(s) }

type fakeNavigator struct {
	navigated []string
	replaced  []string
}

func (n *fakeNavigator) Navigate(path string) { n.navigated = append(n.navigated, path) }
func (n *fakeNavigator) Replace(path string)  { n.replaced = append(n.replaced, path) }

type fakeConfirmer struct {
	answer bool
	asked  []string
}

func (c *fakeConfirmer) Confirm(message string) bool {
	c.asked = append(c.asked, message)
	return c.answer
}

type apiCounters struct {
	writes atomic.Int64
	posts  atomic.Int64
}

// fakeAPI serves a minimal in-memory User collection under the prefix
func fakeAPI(t *testing.T, prefix string) (*client.Client, *apiCounters) {
	t.Helper()

	counters := &apiCounters{}
	r := mux.NewRouter()

	r.HandleFunc(prefix+"/User", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"userId":1,"name":"Alice","email":"alice@x.com","permission":"admin:read"},
			{"userId":2,"name":"Bob","email":"bob@x.com","permission":""}
		]`))
	}).Methods(http.MethodGet)

	r.HandleFunc(prefix+"/User", func(w http.ResponseWriter, r *http.Request) {
		counters.writes.Add(1)
		counters.posts.Add(1)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["userId"] = 7
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodPost)

	r.HandleFunc(prefix+"/User/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"userId":5,"name":"Eve","email":"eve@x.com","permission":""}`))
	}).Methods(http.MethodGet)

	r.HandleFunc(prefix+"/User/{id}", func(w http.ResponseWriter, r *http.Request) {
		counters.writes.Add(1)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodPut)

	r.HandleFunc(prefix+"/User/{id}", func(w http.ResponseWriter, _ *http.Request) {
		counters.writes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return client.New(server.URL, "test-token"), counters
}

func userTablePage() catalog.Page {
	return catalog.Page{
		Name:       "Users",
		Path:       "users",
		Component:  ComponentTable,
		Args:       "ModelName=User|IdentityField=userId",
		Permission: "users:read",
	}
}

func TestTableController(t *testing.T) {
	api, _ := fakeAPI(t, "/api")
	ctx := context.Background()

	t.Run("derives columns from the first record plus Edit", func(t *testing.T) {
		table, err := NewTableController(api, "/api", routetree.New(), userTablePage(), "/users")
		require.NoError(t, err)
		require.NoError(t, table.Load(ctx))

		columns := table.Columns()
		require.Len(t, columns, 5)
		assert.Equal(t, "USERID", columns[0].Header)
		assert.Equal(t, "NAME", columns[1].Header)
		assert.Equal(t, EditColumnKey, columns[len(columns)-1].Key)
	})

	t.Run("rows carry edit links under the table's location", func(t *testing.T) {
		table, err := NewTableController(api, "/api", routetree.New(), userTablePage(), "/users")
		require.NoError(t, err)
		require.NoError(t, table.Load(ctx))

		rows := table.Rows()
		require.Len(t, rows, 2)
		assert.Equal(t, "/users/1", rows[0].EditPath)
		assert.Equal(t, "/users/2", rows[1].EditPath)
	})

	t.Run("registers the form route once across reloads", func(t *testing.T) {
		tree := routetree.New()
		table, err := NewTableController(api, "/api", tree, userTablePage(), "/users")
		require.NoError(t, err)

		require.NoError(t, table.Load(ctx))
		require.NoError(t, table.Load(ctx))

		route, ok := tree.Find("/users/:id")
		require.True(t, ok)
		require.NotNil(t, route.Page)
		assert.Equal(t, ComponentForm, route.Page.Component)
		assert.Equal(t, userTablePage().Args, route.Page.Args)

		count := 0
		for _, r := range tree.Routes() {
			if r.Path == "/users/:id" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("args without a model are rejected", func(t *testing.T) {
		page := userTablePage()
		page.Args = "IdentityField=userId"
		_, err := NewTableController(api, "/api", routetree.New(), page, "/users")
		assert.Error(t, err)
	})
}

func TestTableController_RowWithoutIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"userId":1,"name":"Alice","email":"alice@x.com","permission":""},
			{"userId":null,"name":"Ghost","email":"ghost@x.com","permission":""}
		]`))
	}))
	t.Cleanup(server.Close)

	table, err := NewTableController(client.New(server.URL, "test-token"), "/api",
		routetree.New(), userTablePage(), "/users")
	require.NoError(t, err)
	require.NoError(t, table.Load(context.Background()))

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "/users/1", rows[0].EditPath)
	assert.Empty(t, rows[1].EditPath)
}

func TestConsole_ConfiguredAPIPrefix(t *testing.T) {
	api, _ := fakeAPI(t, "/data")
	ctx := context.Background()

	table, err := NewTableController(api, "/data", routetree.New(), userTablePage(), "/users")
	require.NoError(t, err)
	require.NoError(t, table.Load(ctx))
	assert.Len(t, table.Rows(), 2)

	form, err := NewFormController(api, "data/", registry.Default(), userFormPage(),
		"/users/5", &fakeNavigator{}, &fakeConfirmer{})
	require.NoError(t, err)
	require.NoError(t, form.Load(ctx))

	name, _ := form.Record().Get("name")
	assert.Equal(t, "Eve", name.AsString())
}

func userFormPage() catalog.Page {
	return catalog.Page{
		Name:      "Users",
		Component: ComponentForm,
		Args:      "ModelName=User|IdentityField=userId",
	}
}

func TestFormController_Create(t *testing.T) {
	api, counters := fakeAPI(t, "/api")
	ctx := context.Background()

	nav := &fakeNavigator{}
	form, err := NewFormController(api, "/api", registry.Default(), userFormPage(), "/users/0", nav, &fakeConfirmer{})
	require.NoError(t, err)

	assert.True(t, form.IsNewModel())

	t.Run("identity field is hidden and read-only in create mode", func(t *testing.T) {
		for _, field := range form.Fields() {
			if field.Name == "userId" {
				assert.True(t, field.Hidden)
				assert.True(t, field.ReadOnly)
				return
			}
		}
		t.Fatal("identity field missing")
	})

	t.Run("invalid record never reaches the server", func(t *testing.T) {
		require.NoError(t, form.Load(ctx))
		errs, err := form.Save(ctx)
		require.NoError(t, err)
		assert.Contains(t, errs["name"], "Name is required")
		assert.Zero(t, counters.writes.Load())
	})

	t.Run("successful create navigates to the new record, replacing history", func(t *testing.T) {
		require.NoError(t, form.SetValue("name", recordString("Carol")))
		require.NoError(t, form.SetValue("email", recordString("carol@x.com")))
		require.NoError(t, form.SetValue("permission", recordString("admin:read")))

		errs, err := form.Save(ctx)
		require.NoError(t, err)
		require.Nil(t, errs)

		assert.Equal(t, int64(1), counters.writes.Load())
		assert.Equal(t, []string{"/users/7"}, nav.replaced)
		assert.Empty(t, nav.navigated)
	})

	t.Run("a second save updates the created record instead of re-creating", func(t *testing.T) {
		assert.False(t, form.IsNewModel())

		errs, err := form.Save(ctx)
		require.NoError(t, err)
		require.Nil(t, errs)

		assert.Equal(t, int64(1), counters.posts.Load())
		assert.Equal(t, int64(2), counters.writes.Load())
		assert.Len(t, nav.replaced, 1)
	})
}

func TestFormController_Edit(t *testing.T) {
	api, counters := fakeAPI(t, "/api")
	ctx := context.Background()

	nav := &fakeNavigator{}
	confirm := &fakeConfirmer{}
	form, err := NewFormController(api, "/api", registry.Default(), userFormPage(), "/users/5", nav, confirm)
	require.NoError(t, err)

	assert.False(t, form.IsNewModel())

	t.Run("load fetches the record", func(t *testing.T) {
		require.NoError(t, form.Load(ctx))
		name, _ := form.Record().Get("name")
		assert.Equal(t, "Eve", name.AsString())
	})

	t.Run("save updates in place without navigating", func(t *testing.T) {
		require.NoError(t, form.SetValue("name", recordString("Eve Updated")))
		errs, err := form.Save(ctx)
		require.NoError(t, err)
		require.Nil(t, errs)
		assert.Equal(t, int64(1), counters.writes.Load())
		assert.Empty(t, nav.replaced)
	})

	t.Run("declined confirmation leaves the record alone", func(t *testing.T) {
		confirm.answer = false
		require.NoError(t, form.Delete(ctx))
		assert.Len(t, confirm.asked, 1)
		assert.Equal(t, int64(1), counters.writes.Load())
		assert.Empty(t, nav.navigated)
	})

	t.Run("confirmed delete navigates back to the collection", func(t *testing.T) {
		confirm.answer = true
		require.NoError(t, form.Delete(ctx))
		assert.Equal(t, int64(2), counters.writes.Load())
		assert.Equal(t, []string{"/users"}, nav.navigated)
	})
}

func TestFormController_StaleFetchDropped(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			<-release
			w.Write([]byte(`{"userId":5,"name":"Stale","email":"stale@x.com","permission":""}`))
			return
		}
		w.Write([]byte(`{"userId":5,"name":"Fresh","email":"fresh@x.com","permission":""}`))
	}))
	t.Cleanup(server.Close)

	form, err := NewFormController(client.New(server.URL, "test-token"), "/api",
		registry.Default(), userFormPage(), "/users/5", &fakeNavigator{}, &fakeConfirmer{})
	require.NoError(t, err)

	ctx := context.Background()
	first := make(chan error, 1)
	go func() { first <- form.Load(ctx) }()

	// The second load starts only after the first is in flight, so the
	// first response lands after the second commits.
	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, time.Millisecond)
	require.NoError(t, form.Load(ctx))

	close(release)
	require.NoError(t, <-first)

	name, _ := form.Record().Get("name")
	assert.Equal(t, "Fresh", name.AsString())
}

func TestFormController_UnknownModel(t *testing.T) {
	api, _ := fakeAPI(t, "/api")
	page := userFormPage()
	page.Args = "ModelName=Widget|IdentityField=widgetId"

	_, err := NewFormController(api, "/api", registry.Default(), page, "/widgets/1", &fakeNavigator{}, &fakeConfirmer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}
