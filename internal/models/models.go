package models

import (
	"linkview/internal/brush"
	"linkview/internal/dataset"
	"linkview/internal/selection"
)

type AttributesResponse struct {
	Numerical   []string `json:"numerical"`
	Categorical []string `json:"categorical"`
}

type StateResponse struct {
	Ready     bool                          `json:"ready"`
	Rows      int                           `json:"rows"`
	Version   uint64                        `json:"version"`
	Selected  int                           `json:"selected"`
	Encodings map[string]selection.Encoding `json:"encodings"`
}

type SelectionPage struct {
	Data   []dataset.Record `json:"data"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type SummaryResponse struct {
	Scope      string            `json:"scope"`
	Attributes []dataset.Summary `json:"attributes"`
}

type EncodingRequest struct {
	Axis      selection.Axis `json:"axis"`
	Attribute string         `json:"attribute"`
}

// BrushRequest is one gesture event. A null region on an end event
// commits the empty selection.
type BrushRequest struct {
	Phase  brush.Phase   `json:"phase"`
	Region *brush.Region `json:"region"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StateEvent is pushed to websocket clients after every state change.
type StateEvent struct {
	Type     string `json:"type"`
	Version  uint64 `json:"version"`
	Selected int    `json:"selected"`
}
