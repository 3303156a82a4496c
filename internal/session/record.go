// Package session holds the classifier session record and the state machine
// that moves it between the upload, predicting and result panels.
package session

import (
	"fmt"

	"go-sign-classifier/pkg/models"
)

// Phase selects which panel the view renders
type Phase int

const (
	PhaseInput Phase = iota
	PhasePredicting
	PhaseResult
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePredicting:
		return "predicting"
	case PhaseResult:
		return "result"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ErrorChannel tells which panel an error belongs to
type ErrorChannel string

const (
	ChannelNone       ErrorChannel = ""
	ChannelInput      ErrorChannel = "input"
	ChannelPrediction ErrorChannel = "prediction"
)

// Record is the mutable state of one classifier session.
//
// PredictionResult and UIError are never both set, and neither is set while
// Phase is PhasePredicting. ImageSource is SourceNone exactly when
// DisplayImage is nil.
type Record struct {
	ImageSource      models.ImageSource `json:"image_source"`
	DisplayImage     *models.Image      `json:"display_image,omitempty"`
	PredictionResult *models.Prediction `json:"prediction_result,omitempty"`
	UIError          string             `json:"ui_error,omitempty"`
	ErrorChannel     ErrorChannel       `json:"error_channel,omitempty"`
	Phase            Phase              `json:"phase"`
	URLInput         string             `json:"url_input,omitempty"`
	LoadingImage     bool               `json:"loading_image"`
	Generation       uint64             `json:"generation"`
}

func emptyRecord(generation uint64) Record {
	return Record{
		ImageSource: models.SourceNone,
		Phase:       PhaseInput,
		Generation:  generation,
	}
}

// InputError returns the error shown in the input panel, if any
func (r Record) InputError() string {
	if r.ErrorChannel == ChannelInput {
		return r.UIError
	}
	return ""
}

// PredictionError returns the error shown in the result panel, if any
func (r Record) PredictionError() string {
	if r.ErrorChannel == ChannelPrediction {
		return r.UIError
	}
	return ""
}

func (r Record) clone() Record {
	out := r
	out.DisplayImage = r.DisplayImage.Clone()
	if r.PredictionResult != nil {
		p := *r.PredictionResult
		out.PredictionResult = &p
	}
	return out
}

func (r *Record) clearImage() {
	r.ImageSource = models.SourceNone
	r.DisplayImage = nil
}

func (r *Record) clearOutcome() {
	r.PredictionResult = nil
	r.UIError = ""
	r.ErrorChannel = ChannelNone
}

func (r *Record) setError(channel ErrorChannel, message string) {
	r.PredictionResult = nil
	r.UIError = message
	r.ErrorChannel = channel
}
