package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/campus-event-backend/internal/dispatch"
	"github.com/Shivanand-hulikatti/campus-event-backend/internal/model"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"PORT", "CAMPUS_ADDR", "CAMPUS_LOG_LEVEL", "CAMPUS_LOG_FORMAT", "CAMPUS_TIME_ZONE", "CAMPUS_SEED_FILE"} {
		t.Setenv(k, "")
	}
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCatalog_JSON(t *testing.T) {
	out, err := execute(t, "", "catalog")
	require.NoError(t, err)

	var doc struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Tools, 10)
	assert.Equal(t, "browse_events", doc.Tools[0].Name)
}

func TestCatalog_YAML(t *testing.T) {
	out, err := execute(t, "", "catalog", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: browse_events")
}

func TestCatalog_BadFormat(t *testing.T) {
	_, err := execute(t, "", "catalog", "--format", "xml")
	assert.Error(t, err)
}

func TestCall(t *testing.T) {
	out, err := execute(t, "", "call", "register_student", `{"event_id":"hackathon_spring","student_id":"S1"}`, "--id", "corr-7")
	require.NoError(t, err)

	var resp struct {
		ID     string                   `json:"id"`
		State  dispatch.State           `json:"state"`
		Result model.RegistrationResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "corr-7", resp.ID)
	assert.Equal(t, dispatch.StateSucceeded, resp.State)
	assert.Equal(t, "S1", resp.Result.Registration.StudentID)
}

func TestCall_Stdin(t *testing.T) {
	out, err := execute(t, `{"venue_id":"lab_cs1"}`, "call", "get_venue_details", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"lab_cs1"`)
}

func TestCall_ValidationFailurePrintsResponse(t *testing.T) {
	out, err := execute(t, "", "call", "register_student", `{"event_id":"hackathon_spring"}`)
	assert.ErrorIs(t, err, model.ErrValidation)

	var resp dispatch.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, dispatch.StateFailed, resp.State)
	assert.Equal(t, "student_id", resp.Error.Details["param"])
}
