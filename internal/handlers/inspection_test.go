package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"restocheck/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeInspectionStore struct {
	inserted *models.Inspection
	err      error
}

func (f *fakeInspectionStore) Insert(ctx context.Context, inspection *models.Inspection) error {
	if f.err != nil {
		return f.err
	}
	inspection.ID = primitive.NewObjectID()
	f.inserted = inspection
	return nil
}

type fakeEmployeeLookup struct {
	employee *models.Employee
}

func (f *fakeEmployeeLookup) EmployeeByWhatsApp(ctx context.Context, number string) (*models.Employee, error) {
	return f.employee, nil
}

func submitBody(t *testing.T, sectionID primitive.ObjectID, passed bool) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"whatsapp_number": "+15550000001",
		"section_id":      sectionID.Hex(),
		"responses": []map[string]interface{}{
			{"question_id": primitive.NewObjectID().Hex(), "passed": passed},
			{"question_id": primitive.NewObjectID().Hex(), "comment": "skipped"},
		},
	})
	require.NoError(t, err)
	return body
}

func submitRequest(h *InspectionHandler, token string, body []byte) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhooks/whatsapp/inspection", h.Submit)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp/inspection", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Webhook-Token", token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitInspectionRecordsRun(t *testing.T) {
	employee := &models.Employee{ID: primitive.NewObjectID(), Name: "Dana"}
	store := &fakeInspectionStore{}
	h := NewInspectionHandler(store, &fakeEmployeeLookup{employee: employee}, "secret")

	sectionID := primitive.NewObjectID()
	w := submitRequest(h, "secret", submitBody(t, sectionID, true))

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.inserted)
	assert.Equal(t, employee.ID, store.inserted.EmployeeID)
	assert.Equal(t, sectionID, store.inserted.SectionID)
	assert.Equal(t, models.InspectionStatusPassed, store.inserted.Status)
	assert.Len(t, store.inserted.Responses, 2)
	// Second response had no verdict at all.
	assert.Nil(t, store.inserted.Responses[1].Passed)
}

func TestSubmitInspectionFailedAnswerNeedsAttention(t *testing.T) {
	employee := &models.Employee{ID: primitive.NewObjectID(), Name: "Dana"}
	store := &fakeInspectionStore{}
	h := NewInspectionHandler(store, &fakeEmployeeLookup{employee: employee}, "")

	w := submitRequest(h, "", submitBody(t, primitive.NewObjectID(), false))

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, store.inserted)
	assert.Equal(t, models.InspectionStatusAttention, store.inserted.Status)
}

func TestSubmitInspectionRejectsBadToken(t *testing.T) {
	store := &fakeInspectionStore{}
	h := NewInspectionHandler(store, &fakeEmployeeLookup{}, "secret")

	w := submitRequest(h, "wrong", submitBody(t, primitive.NewObjectID(), true))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, store.inserted)
}

func TestSubmitInspectionUnknownNumber(t *testing.T) {
	store := &fakeInspectionStore{}
	h := NewInspectionHandler(store, &fakeEmployeeLookup{}, "")

	w := submitRequest(h, "", submitBody(t, primitive.NewObjectID(), true))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, store.inserted)
}
