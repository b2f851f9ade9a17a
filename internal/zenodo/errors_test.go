package zenodo

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFilesPresent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"structured message", newAPIError("POST", "/x", 400, []byte(`{"status":400,"message":"Please remove all files first."}`)), true},
		{"raw body only", newAPIError("POST", "/x", 400, []byte(`Please remove all files first`)), true},
		{"nested errors body", newAPIError("POST", "/x", 400, []byte(`{"errors":[{"message":"please REMOVE ALL FILES first"}]}`)), true},
		{"wrapped", fmt.Errorf("new version: %w", newAPIError("POST", "/x", 400, []byte(`{"message":"Please remove all files first."}`))), true},
		{"other 400", newAPIError("POST", "/x", 400, []byte(`{"message":"Validation error."}`)), false},
		{"wrong status", newAPIError("POST", "/x", 500, []byte(`{"message":"Please remove all files first."}`)), false},
		{"not an api error", errors.New("Please remove all files first"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFilesPresent(tc.err))
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := newAPIError("PUT", "/deposit/depositions/1", http.StatusForbidden, []byte(`not json`))
	assert.Equal(t, "zenodo: PUT /deposit/depositions/1: HTTP 403: Forbidden", err.Error())
	assert.True(t, IsNotFound(newAPIError("GET", "/x", 404, nil)))
	assert.False(t, IsNotFound(err))
}

func TestLatestDraftID(t *testing.T) {
	dep := &Deposition{Links: DepositionLinks{LatestDraft: "https://zenodo.org/api/deposit/depositions/1234/"}}
	assert.Equal(t, "1234", dep.LatestDraftID())

	assert.Equal(t, "", (&Deposition{}).LatestDraftID())
}
