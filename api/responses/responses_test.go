package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/tradepost-app/tradepost-backend/pkg/errors"
	"github.com/tradepost-app/tradepost-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorWorkflowCodes(t *testing.T) {
	cases := []struct {
		code       pkgerrors.Code
		status     int
		passesText bool
	}{
		{pkgerrors.CodeInvalidState, http.StatusUnprocessableEntity, true},
		{pkgerrors.CodeBelowMinimum, http.StatusUnprocessableEntity, true},
		{pkgerrors.CodeInsufficientBalance, http.StatusUnprocessableEntity, true},
		{pkgerrors.CodeInvalidDestination, http.StatusUnprocessableEntity, true},
		{pkgerrors.CodeAlreadyResolved, http.StatusConflict, true},
		{pkgerrors.CodeConflict, http.StatusConflict, true},
		{pkgerrors.CodeRateLimit, http.StatusTooManyRequests, false},
		{pkgerrors.CodeStoreUnavailable, http.StatusServiceUnavailable, false},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), nil, w, pkgerrors.New(tc.code, "nope"))

		if w.Code != tc.status {
			t.Errorf("%s: expected status %d but got %d", tc.code, tc.status, w.Code)
		}
		var body types.ErrorEnvelope
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("%s: failed to decode error envelope: %v", tc.code, err)
		}
		if body.Error.Code != string(tc.code) {
			t.Errorf("%s: unexpected code %s", tc.code, body.Error.Code)
		}
		if tc.passesText && body.Error.Message != "nope" {
			t.Errorf("%s: expected caller message to pass through, got %q", tc.code, body.Error.Message)
		}
		if !tc.passesText && body.Error.Message == "nope" {
			t.Errorf("%s: caller message must not leak", tc.code)
		}
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
	if body.Error.Message == "boom" {
		t.Fatalf("internal error text must not leak to clients")
	}
}
