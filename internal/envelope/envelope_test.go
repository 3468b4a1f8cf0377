package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	cimerrors "cim/internal/errors"
)

func TestOK(t *testing.T) {
	resp := OK(map[string]int{"count": 3})

	if resp.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("schemaVersion = %q", resp.SchemaVersion)
	}
	if resp.IsError() || resp.Degraded {
		t.Errorf("resp = %+v, want clean success", resp)
	}

	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "error") {
		t.Errorf("success envelope must omit error field: %s", out)
	}
}

func TestErrPreservesCimError(t *testing.T) {
	cause := cimerrors.NewArtifactNotFound("src/app.js", []string{"src/api.js"})
	resp := Err(cause)

	if !resp.IsError() {
		t.Fatal("want error response")
	}
	if resp.Error.Code != string(cimerrors.ArtifactNotFound) {
		t.Errorf("code = %q, want ARTIFACT_NOT_FOUND", resp.Error.Code)
	}
	if len(resp.Error.Suggestions) != 1 || resp.Error.Suggestions[0] != "src/api.js" {
		t.Errorf("suggestions = %v", resp.Error.Suggestions)
	}
}

func TestErrCarriesStructuredDetails(t *testing.T) {
	cause := cimerrors.NewValidationError("depth", "must be >= 0").
		WithDetails(map[string]interface{}{"field": "depth", "got": -1})
	resp := Err(cause)

	if resp.Error.Details == nil {
		t.Fatal("want details carried into the envelope")
	}

	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"field":"depth"`) {
		t.Errorf("details not serialized: %s", out)
	}
}

func TestErrPlainError(t *testing.T) {
	resp := Err(errors.New("disk on fire"))

	if resp.Error.Code != string(cimerrors.InternalError) {
		t.Errorf("code = %q, want INTERNAL_ERROR for plain errors", resp.Error.Code)
	}
	if resp.Error.Message != "disk on fire" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestChaining(t *testing.T) {
	resp := OK("data").WithWarning("STALE", "model may be stale").MarkDegraded()

	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != "STALE" {
		t.Errorf("warnings = %v", resp.Warnings)
	}
	if !resp.Degraded {
		t.Error("want degraded flag set")
	}
}
