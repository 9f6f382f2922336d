package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/requirement-validator/internal/adapters/storage"
	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/validator"
)

type recordingPublisher struct {
	mu   sync.Mutex
	recs []*domain.Record
	err  error
}

func (p *recordingPublisher) PublishValidation(_ context.Context, rec *domain.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append(p.recs, rec)
	return p.err
}

func (p *recordingPublisher) Close() {}

type failingStore struct{}

func (failingStore) Save(context.Context, *domain.Record) error { return errors.New("disk full") }
func (failingStore) Get(context.Context, string) (*domain.Record, error) {
	return nil, storage.ErrNotFound
}
func (failingStore) List(context.Context, int) ([]domain.Record, error) { return nil, nil }
func (failingStore) Close() error                                      { return nil }

type panickingValidator struct{}

func (panickingValidator) Validate(string, bool) domain.Validation { panic("boom") }

func newTestApp(t *testing.T, withStore bool, events *recordingPublisher) *fiber.App {
	t.Helper()
	d := Deps{Validator: validator.New(nil), Log: zerolog.Nop()}
	if withStore {
		s, err := storage.NewBadgerStore("")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		d.Store = s
	}
	if events != nil {
		d.Events = events
	}
	return NewApp(d)
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out, raw
}

func TestRoot(t *testing.T) {
	status, body, _ := do(t, newTestApp(t, false, nil), "GET", "/", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, map[string]any{
		"message": "Requirement Validator API",
		"status":  "✅ Online",
		"version": "1.0.0",
	}, body)
}

func TestHealth(t *testing.T) {
	status, body, _ := do(t, newTestApp(t, false, nil), "GET", "/healthz", "")
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", body["status"])
}

func TestValidateRequirement(t *testing.T) {
	app := newTestApp(t, false, nil)

	status, body, _ := do(t, app, "POST", "/validate-requirement",
		`{"requirement":"Mostrar algo","is_functional":true}`)
	require.Equal(t, 200, status)

	assert.Equal(t, "Mostrar algo", body["original_text"])
	assert.Equal(t, false, body["is_valid"])
	assert.NotContains(t, body, "id", "no id without a store")

	errs := body["errors"].([]any)
	require.Len(t, errs, 2)
	first := errs[0].(map[string]any)
	assert.Equal(t, "Longitud Insuficiente", first["type"])
	assert.Contains(t, first, "description")
	assert.Contains(t, first, "suggestion")

	sugg := body["suggestions"].([]any)
	require.Len(t, sugg, 1)
	assert.Equal(t, "Medibilidad", sugg[0].(map[string]any)["type"])
	assert.Contains(t, sugg[0].(map[string]any), "recommendation")
}

func TestValidateRequirementEmptyListsSerializeAsArrays(t *testing.T) {
	_, _, raw := do(t, newTestApp(t, false, nil), "POST", "/validate-requirement",
		`{"requirement":"El tiempo de respuesta debe ser inferior a dos segundos","is_functional":false}`)
	assert.Contains(t, string(raw), `"errors":[]`)
	assert.Contains(t, string(raw), `"suggestions":[]`)
}

func TestValidateRequirementBadInput(t *testing.T) {
	app := newTestApp(t, false, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"requirement":`, "Invalid request body"},
		{"missing requirement", `{"is_functional":true}`, "field required: requirement"},
		{"missing is_functional", `{"requirement":"x"}`, "field required: is_functional"},
		{"wrong type", `{"requirement":"x","is_functional":"yes"}`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body, _ := do(t, app, "POST", "/validate-requirement", tt.body)
			assert.Equal(t, 422, status)
			assert.Equal(t, tt.want, body["detail"])
		})
	}
}

func TestValidateRequirementPanicIs500(t *testing.T) {
	app := NewApp(Deps{Validator: panickingValidator{}, Log: zerolog.Nop()})
	status, body, _ := do(t, app, "POST", "/validate-requirement", `{"requirement":"x","is_functional":true}`)
	assert.Equal(t, 500, status)
	assert.Contains(t, body["detail"], "boom")
}

func TestPanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp(Deps{Validator: panickingValidator{}, Log: zerolog.New(&buf)})
	status, _, _ := do(t, app, "POST", "/validate-requirement", `{"requirement":"x","is_functional":true}`)
	require.Equal(t, 500, status)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "request", line["message"])
	assert.Equal(t, float64(500), line["status"])
	assert.Equal(t, "/validate-requirement", line["path"])
	assert.Contains(t, line["error"], "boom")
}

func TestValidationHistory(t *testing.T) {
	events := &recordingPublisher{}
	app := newTestApp(t, true, events)

	status, body, _ := do(t, app, "POST", "/validate-requirement",
		`{"requirement":"El sistema debe registrar cada venta realizada","is_functional":true}`)
	require.Equal(t, 200, status)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	status, rec, _ := do(t, app, "GET", "/validations/"+id, "")
	require.Equal(t, 200, status)
	assert.Equal(t, id, rec["id"])
	assert.Equal(t, true, rec["is_functional"])
	assert.Equal(t, "El sistema debe registrar cada venta realizada", rec["result"].(map[string]any)["original_text"])

	require.Len(t, events.recs, 1)
	assert.Equal(t, id, events.recs[0].ID)

	status, body, _ = do(t, app, "GET", "/validations/does-not-exist", "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "validation not found", body["detail"])
}

func TestListValidations(t *testing.T) {
	app := newTestApp(t, true, nil)
	for i := 0; i < 3; i++ {
		status, _, _ := do(t, app, "POST", "/validate-requirement", `{"requirement":"texto","is_functional":false}`)
		require.Equal(t, 200, status)
	}

	status, _, raw := do(t, app, "GET", "/validations?limit=2", "")
	require.Equal(t, 200, status)
	var recs []domain.Record
	require.NoError(t, json.Unmarshal(raw, &recs))
	assert.Len(t, recs, 2)

	status, body, _ := do(t, app, "GET", "/validations?limit=zero", "")
	assert.Equal(t, 422, status)
	assert.Equal(t, "limit must be a positive integer", body["detail"])
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	events := &recordingPublisher{err: errors.New("nats down")}
	status, body, _ := do(t, newTestApp(t, true, events), "POST", "/validate-requirement",
		`{"requirement":"texto","is_functional":true}`)
	assert.Equal(t, 200, status)
	assert.NotEmpty(t, body["id"])
}

func TestEventsPublishedWithoutStore(t *testing.T) {
	events := &recordingPublisher{}
	app := newTestApp(t, false, events)

	status, body, _ := do(t, app, "POST", "/validate-requirement",
		`{"requirement":"El sistema debe registrar cada venta realizada","is_functional":true}`)
	require.Equal(t, 200, status)

	require.Len(t, events.recs, 1)
	rec := events.recs[0]
	assert.Equal(t, body["id"], rec.ID)
	assert.True(t, rec.IsFunctional)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, "El sistema debe registrar cada venta realizada", rec.Result.OriginalText)
}

func TestNoIDWithoutStoreOrEvents(t *testing.T) {
	status, body, _ := do(t, newTestApp(t, false, nil), "POST", "/validate-requirement",
		`{"requirement":"texto","is_functional":true}`)
	require.Equal(t, 200, status)
	assert.NotContains(t, body, "id")
}

func TestStoreFailureIs500(t *testing.T) {
	app := NewApp(Deps{Validator: validator.New(nil), Store: failingStore{}, Log: zerolog.Nop()})
	status, body, _ := do(t, app, "POST", "/validate-requirement", `{"requirement":"texto","is_functional":true}`)
	assert.Equal(t, 500, status)
	assert.Equal(t, "disk full", body["detail"])
}

func TestHistoryRoutesNeedStore(t *testing.T) {
	status, body, _ := do(t, newTestApp(t, false, nil), "GET", "/validations", "")
	assert.Equal(t, 404, status)
	assert.NotEmpty(t, body["detail"])
}

func TestCORS(t *testing.T) {
	app := newTestApp(t, false, nil)

	req := httptest.NewRequest("OPTIONS", "/validate-requirement", nil)
	req.Header.Set("Origin", "https://frontend.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, false, nil)
	do(t, app, "POST", "/validate-requirement", `{"requirement":"Mostrar algo","is_functional":true}`)

	status, _, raw := do(t, app, "GET", "/metrics", "")
	assert.Equal(t, 200, status)
	assert.Contains(t, string(raw), "reqval_validations_total")
}
