//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jsphweid/deepj/cmd"
	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/feature"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/stretchr/testify/assert"
)

const timeSteps = 8

var router http.Handler

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "deepj-e2e")
	if err != nil {
		panic(err.Error())
	}
	path := filepath.Join(dir, "weights.dat")
	os.Setenv("CHECKPOINT_PATH", path)
	os.Setenv("DYNAMO_ENDPOINT", "")

	cfg := network.DefaultConfig()
	cfg.TimeSteps = timeSteps
	cfg.Head = network.NotesAndStyleHead
	if err := cmd.InitCheckpoint(path, cfg, 1); err != nil {
		panic(err.Error())
	}
	if err := cmd.LoadServeFiles(); err != nil {
		panic(err.Error())
	}
	router = cmd.NewRouter()

	exitVal := m.Run()

	os.RemoveAll(dir)
	os.Exit(exitVal)
}

func createReqBody(v any) io.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err.Error())
	}
	return bytes.NewReader(data)
}

func TestPredictDefaultModelE2E(t *testing.T) {
	dims := constants.DefaultDims()
	b := model.NewBatch(1, timeSteps, dims)
	copy(b.Beat, feature.BeatWindow(0, timeSteps, dims.NotesPerBar))
	for i := 0; i < timeSteps; i++ {
		b.Style[i*dims.NumStyles+2] = 1
	}
	b.Notes[model.NoteIndex(dims, timeSteps, 0, 3, 24, 0)] = 1

	req := httptest.NewRequest(http.MethodPost, "/predict", createReqBody(model.PredictRequest{Batch: b}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	respBody, _ := io.ReadAll(resp.Body)

	assert := assert.New(t)
	assert.Equal(200, resp.StatusCode)

	var res model.PredictResponse
	if err := json.Unmarshal(respBody, &res); err != nil {
		panic(err.Error())
	}
	assert.Nil(res.Loss)
	assert.Len(res.Prediction.Notes, timeSteps*dims.NumNotes*2)
	assert.Len(res.Prediction.Styles, timeSteps*dims.NumStyles)
	for _, p := range res.Prediction.Notes {
		assert.True(p >= 0 && p <= 1)
	}
}

func TestGenerateDefaultModelE2E(t *testing.T) {
	body := createReqBody(model.GenerateRequest{Style: []float32{0, 1, 0, 0}, Steps: 2, Seed: 7})
	req := httptest.NewRequest(http.MethodPost, "/generate", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	respBody, _ := io.ReadAll(resp.Body)

	assert := assert.New(t)
	assert.Equal(200, resp.StatusCode)

	var res model.GenerateResponse
	if err := json.Unmarshal(respBody, &res); err != nil {
		panic(err.Error())
	}
	assert.NotEmpty(res.Id)
	assert.Len(res.Composition.Steps, 2)
	assert.Len(res.Composition.Steps[0], constants.NumNotes)
}

func TestStylesE2E(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/styles", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var res []model.StyleInfo
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		panic(err.Error())
	}
	assert.Equal(t, []model.StyleInfo{
		{Id: 0, Name: "baroque"},
		{Id: 1, Name: "classical"},
		{Id: 2, Name: "romantic"},
		{Id: 3, Name: "modern"},
	}, res)
}
