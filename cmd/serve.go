package cmd

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jsphweid/deepj/chord"
	"github.com/jsphweid/deepj/constants"
	"github.com/jsphweid/deepj/db"
	"github.com/jsphweid/deepj/model"
	"github.com/jsphweid/deepj/network"
	"github.com/jsphweid/deepj/sample"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// generation runs one forward pass per note, so requests are capped
const maxGenerateSteps = 256

var serveNet *network.Network

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serves",
	Long:  `Serves predictions and generations from the checkpoint over HTTP.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := LoadServeFiles(); err != nil {
			return err
		}
		addr := ":" + constants.GetPort()
		log.WithField("addr", addr).Info("serving")
		return http.ListenAndServe(addr, NewRouter())
	},
}

func LoadServeFiles() error {
	net, err := loadCheckpoint(constants.GetCheckpointPath())
	if err != nil {
		return errors.Wrap(err, "could not load serve files")
	}
	serveNet = net
	return nil
}

func NewRouter() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/predict", HandlePredict).Methods("POST")
	router.HandleFunc("/generate", HandleGenerate).Methods("POST")
	router.HandleFunc("/styles", HandleStyles).Methods("GET")
	return cors.Default().Handler(router)
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.WithError(err).WithField("status", status).Warn("request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("could not write response")
	}
}

func HandlePredict(w http.ResponseWriter, r *http.Request) {
	var input model.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not decode request body"))
		return
	}

	pred, loss, err := serveNet.Evaluate(input.Batch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res := model.PredictResponse{Prediction: pred}
	if input.Batch.Target != nil {
		res.Loss = &loss
	}
	writeJSON(w, res)
}

func HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var input model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "could not decode request body"))
		return
	}
	if input.Steps <= 0 || input.Steps > maxGenerateSteps {
		writeError(w, http.StatusBadRequest, errors.Errorf("steps must be in [1, %d]", maxGenerateSteps))
		return
	}

	gen, err := sample.New(serveNet, input.Seed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	comp, err := gen.Generate(r.Context(), input.Style, input.Steps)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, model.GenerateResponse{
		Id:          uuid.New().String(),
		Composition: comp,
		Chords:      chord.Count(comp),
	})
}

func HandleStyles(w http.ResponseWriter, r *http.Request) {
	numStyles := serveNet.Config().NumStyles
	ids := make([]int, numStyles)
	names := make(map[int]string, numStyles)
	for i := range ids {
		ids[i] = i
		if i < len(constants.StyleNames) {
			names[i] = constants.StyleNames[i]
		}
	}

	if endpoint := constants.GetDynamoEndpoint(); endpoint != "" {
		found, err := lookupStyleNames(endpoint, ids)
		if err != nil {
			log.WithError(err).Warn("falling back to built in style names")
		}
		for id, name := range found {
			names[id] = name
		}
	}

	res := make([]model.StyleInfo, 0, numStyles)
	for _, id := range ids {
		res = append(res, model.StyleInfo{Id: id, Name: names[id]})
	}
	writeJSON(w, res)
}

func lookupStyleNames(endpoint string, ids []int) (map[int]string, error) {
	client, err := db.NewClient(endpoint)
	if err != nil {
		return nil, err
	}
	return db.GetStyleNames(client, ids)
}
