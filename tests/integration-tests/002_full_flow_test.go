// tests/integration-tests/002_full_flow_test.go
package integration_tests_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testlab/testplan-backend-service/internal/auth"
	"github.com/testlab/testplan-backend-service/internal/handlers"
	"github.com/testlab/testplan-backend-service/internal/storage"
	"github.com/testlab/testplan-backend-service/tests/testutil"
)

// startServer boots the full router on an ephemeral port with in-memory
// storage and returns a cookie-carrying client.
func startServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	store := storage.NewMemoryStorage()
	sessions := auth.NewSessionStore(time.Hour)
	files, err := handlers.NewFileStore(t.TempDir(), 10<<20)
	require.NoError(t, err)

	router := handlers.NewRouter(store, sessions, time.Hour, files, nil, "integration-test")
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func readJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// TestFullProjectLifecycle drives the complete user journey over real HTTP:
// register, create a project, fill its test plan, export it, import the
// export into a second project, and tear everything down.
func TestFullProjectLifecycle(t *testing.T) {
	srv, client := startServer(t)

	// Register and confirm the session cookie works
	resp := postJSON(t, client, srv.URL+"/api/auth/register",
		map[string]string{"username": testutil.ValidUsername, "password": testutil.ValidPassword})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := client.Get(srv.URL + "/api/auth/me")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := readJSON(t, resp)
	assert.Equal(t, testutil.ValidUsername, me["username"])

	// Create a project
	resp = postJSON(t, client, srv.URL+"/api/projects", testutil.SampleProjectRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	project := readJSON(t, resp)
	projectID := project["id"].(string)
	testutil.AssertValidEnum(t, project["status"].(string), testutil.ProjectStatuses, "status")
	testutil.AssertCanonicalDate(t, project["startDate"].(string), "startDate")

	// Fill the test plan
	itemNames := []string{"전원 시험", "방수 시험", "진동 시험"}
	for _, name := range itemNames {
		payload := testutil.SampleTestItemRequest()
		payload["name"] = name
		resp = postJSON(t, client, srv.URL+"/api/projects/"+projectID+"/test-items", payload)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		item := readJSON(t, resp)
		testutil.AssertValidEnum(t, item["testResult"].(string), testutil.TestResults, "testResult")
	}

	// Record an issue against the project
	resp = postJSON(t, client, srv.URL+"/api/projects/"+projectID+"/issue-items", testutil.SampleIssueItemRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	issue := readJSON(t, resp)
	testutil.AssertValidEnum(t, issue["severity"].(string), testutil.Severities, "severity")

	// Export the plan
	resp, err = client.Get(srv.URL + "/api/projects/" + projectID + "/test-items/export")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.NotEmpty(t, exported)

	// Import the export into a fresh project
	resp = postJSON(t, client, srv.URL+"/api/projects", map[string]string{"name": "사본 프로젝트"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	copyID := readJSON(t, resp)["id"].(string)

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", "plan.xlsx")
	require.NoError(t, err)
	_, err = part.Write(exported)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost,
		srv.URL+"/api/projects/"+copyID+"/test-items/import", &form)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := readJSON(t, resp)
	assert.Equal(t, float64(len(itemNames)), result["count"])

	// Deleting the original cascades to its items
	req, err = http.NewRequest(http.MethodDelete, srv.URL+"/api/projects/"+projectID, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	var projects []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	require.Len(t, projects, 1, "only the import target should remain")
	assert.Equal(t, "사본 프로젝트", projects[0]["name"])

	// Logout invalidates the session
	resp = postJSON(t, client, srv.URL+"/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/api/projects")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

// TestSessionsAreIsolatedBetweenClients registers two users with separate
// cookie jars and verifies neither can see the other's projects.
func TestSessionsAreIsolatedBetweenClients(t *testing.T) {
	srv, alice := startServer(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	bob := &http.Client{Jar: jar}

	for i, client := range []*http.Client{alice, bob} {
		resp := postJSON(t, client, srv.URL+"/api/auth/register",
			map[string]string{"username": fmt.Sprintf("user%d", i+1), "password": testutil.ValidPassword})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := postJSON(t, alice, srv.URL+"/api/projects", map[string]string{"name": "앨리스 프로젝트"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	projectID := readJSON(t, resp)["id"].(string)

	resp, err = bob.Get(srv.URL + "/api/projects")
	require.NoError(t, err)
	defer resp.Body.Close()
	var projects []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&projects))
	assert.Empty(t, projects)

	resp, err = bob.Get(srv.URL + "/api/projects/" + projectID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
