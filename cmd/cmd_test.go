package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/util"
	"github.com/jsphweid/deepj/weights"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() network.Config {
	return network.Config{
		Dims: constants.Dims{
			NumNotes:       24,
			Octave:         12,
			NumOctaves:     2,
			NumStyles:      3,
			NotesPerBar:    4,
			StyleUnits:     3,
			BeatUnits:      2,
			OctaveUnits:    3,
			TimeAxisUnits:  4,
			TimeAxisLayers: 1,
			NoteAxisUnits:  4,
			NoteAxisLayers: 1,
		},
		TimeSteps: 4,
		BatchSize: 1,
	}
}

func newCheckpoint(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.dat")
	require.NoError(t, InitCheckpoint(path, smallConfig(), 3))
	return path
}

func writeDataset(t *testing.T, cfg network.Config, size, count int) string {
	t.Helper()
	var batches []model.Batch
	for i := 0; i < count; i++ {
		b := model.NewBatch(size, cfg.TimeSteps, cfg.Dims)
		b.Target = make([]float32, len(b.Notes))
		for j := 0; j < len(b.Target); j += 5 {
			b.Target[j] = 1
			b.Notes[j] = 1
		}
		copy(b.Chosen, b.Target)
		for r := 0; r < size*cfg.TimeSteps; r++ {
			b.Style[r*cfg.NumStyles+i%cfg.NumStyles] = 1
		}
		batches = append(batches, b)
	}
	path := filepath.Join(t.TempDir(), "dataset.dat")
	require.NoError(t, util.WriteBinary(path, batches))
	return path
}

func TestInitCheckpointRecordsConfig(t *testing.T) {
	path := newCheckpoint(t)
	store, err := weights.Load(path)
	require.NoError(t, err)

	cfg, err := network.ConfigFrom(store)
	require.NoError(t, err)
	assert.Equal(t, smallConfig(), cfg)
	assert.Greater(t, store.Len(), 0)
	assert.NoError(t, inspect(path))
}

func TestTrainUpdatesCheckpoint(t *testing.T) {
	path := newCheckpoint(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	dataset := writeDataset(t, smallConfig(), 2, 2)
	hook := test.NewGlobal()
	defer hook.Reset()
	require.NoError(t, Train(path, dataset, 3, 0.01, 2))

	var finalStep bool
	for _, e := range hook.AllEntries() {
		if e.Message == "training" && e.Data["step"] == 3 {
			finalStep = true
		}
	}
	assert.True(t, finalStep, "last training step was not logged")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	report, err := Report(path, dataset)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Batches)
	assert.Greater(t, report.MeanLoss, 0.0)
	assert.InDelta(t, 0.2, report.TargetPlayed, 0.05)
}

func TestTrainRejectsEmptyDataset(t *testing.T) {
	path := newCheckpoint(t)
	empty := filepath.Join(t.TempDir(), "empty.dat")
	require.NoError(t, util.WriteBinary(empty, []model.Batch{}))
	assert.Error(t, Train(path, empty, 1, 0.01, 0))
}

func TestGenerateWritesComposition(t *testing.T) {
	path := newCheckpoint(t)
	comp, err := Generate(context.Background(), path, 1, 2, 9, 1)
	require.NoError(t, err)
	assert.Len(t, comp.Steps, 2)
	assert.Equal(t, []float32{0, 1, 0}, comp.Style)

	_, err = Generate(context.Background(), path, 3, 2, 9, 1)
	assert.Error(t, err)

	dir := t.TempDir()
	out, err := writeComposition(dir, comp)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var decoded model.Composition
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, comp, decoded)
}

func serveCheckpoint(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("CHECKPOINT_PATH", newCheckpoint(t))
	t.Setenv("DYNAMO_ENDPOINT", "")
	require.NoError(t, LoadServeFiles())
	return NewRouter()
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	h := serveCheckpoint(t)
	cfg := smallConfig()
	b := model.NewBatch(1, cfg.TimeSteps, cfg.Dims)
	b.Target = make([]float32, len(b.Notes))

	w := post(t, h, "/predict", model.PredictRequest{Batch: b})
	require.Equal(t, http.StatusOK, w.Code)

	var res model.PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Prediction.Notes, cfg.TimeSteps*cfg.NumNotes*2)
	require.NotNil(t, res.Loss)
	assert.GreaterOrEqual(t, *res.Loss, float32(0))
}

func TestHandlePredictRejectsWrongShape(t *testing.T) {
	h := serveCheckpoint(t)
	cfg := smallConfig()
	b := model.NewBatch(1, cfg.TimeSteps, cfg.Dims)
	b.Beat = b.Beat[:1]

	w := post(t, h, "/predict", model.PredictRequest{Batch: b})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var res model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Error, "beat")
}

func TestHandleGenerate(t *testing.T) {
	h := serveCheckpoint(t)

	w := post(t, h, "/generate", model.GenerateRequest{Style: []float32{1, 0, 0}, Steps: 2, Seed: 1})
	require.Equal(t, http.StatusOK, w.Code)
	var res model.GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Id)
	assert.Len(t, res.Composition.Steps, 2)

	w = post(t, h, "/generate", model.GenerateRequest{Style: []float32{1, 0, 0}, Steps: maxGenerateSteps + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStyles(t *testing.T) {
	h := serveCheckpoint(t)
	req := httptest.NewRequest(http.MethodGet, "/styles", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var res []model.StyleInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []model.StyleInfo{
		{Id: 0, Name: "baroque"},
		{Id: 1, Name: "classical"},
		{Id: 2, Name: "romantic"},
	}, res)
}
