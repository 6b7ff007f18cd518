package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOptionalFloat(t *testing.T) {
	tests := []struct {
		input   string
		want    *float64
		wantErr bool
	}{
		{`12.5`, ptrFloat(12.5), false},
		{`"8"`, ptrFloat(8), false},
		{`0`, ptrFloat(0), false},
		{`""`, nil, false},
		{`null`, nil, false},
		{`"warm"`, nil, true},
		{`"NaN"`, nil, true},
		{`"Inf"`, nil, true},
		{`"-infinity"`, nil, true},
	}

	for _, tt := range tests {
		var f optionalFloat
		err := json.Unmarshal([]byte(tt.input), &f)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, f.value, tt.input)
	}
}

func ptrFloat(v float64) *float64 { return &v }

func TestLogisticsHandler_Create(t *testing.T) {
	svc := &mockLogisticsService{}
	h := NewLogisticsHandler(svc, zap.NewNop())
	batchID := uuid.New()

	body := []byte(`{"stage":"storage","location":"冷库A","temperature":"22.5","humidity":"","vehicle_plate":"京A12345"}`)
	req := makeRequest(http.MethodPost, "/", body)
	req.SetPathValue("bid", batchID.String())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.inputs, 1)
	in := svc.inputs[0]
	require.NotNil(t, in.Temperature)
	assert.Equal(t, 22.5, *in.Temperature)
	assert.Nil(t, in.Humidity, "blank humidity is no reading")
	assert.Equal(t, "京A12345", in.VehiclePlate)
}

func TestLogisticsHandler_Create_NonNumericReading(t *testing.T) {
	h := NewLogisticsHandler(&mockLogisticsService{}, zap.NewNop())

	req := makeRequest(http.MethodPost, "/", []byte(`{"temperature":"hot"}`))
	req.SetPathValue("bid", uuid.NewString())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
