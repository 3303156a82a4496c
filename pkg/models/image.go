package models

// ImageSource identifies which input mode produced the display image
type ImageSource string

const (
	SourceNone      ImageSource = "none"
	SourceLocalFile ImageSource = "localFile"
	SourceRemoteURL ImageSource = "remoteUrl"
)

// Image is the in-memory display image held by a session.
// File-sourced images carry their bytes; URL-sourced images carry the URL.
type Image struct {
	Source      ImageSource `json:"source"`
	Name        string      `json:"name,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Size        int64       `json:"size"`
	URL         string      `json:"url,omitempty"`
	Width       int         `json:"width,omitempty"`
	Height      int         `json:"height,omitempty"`
	Format      string      `json:"format,omitempty"`
	Data        []byte      `json:"-"`
}

// Clone returns a copy of the image metadata. Data is shared: it is never
// modified once the image has been loaded.
func (i *Image) Clone() *Image {
	if i == nil {
		return nil
	}
	out := *i
	return &out
}

// Prediction is a successful classification result
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// BarPercent returns the confidence clamped to [0, 100] for rendering a progress bar
func (p Prediction) BarPercent() float64 {
	switch {
	case p.Confidence < 0:
		return 0
	case p.Confidence > 100:
		return 100
	default:
		return p.Confidence
	}
}
