// Package predictions provides the client for the model inference service.
package predictions

import "errors"

var (
	// ErrServiceUnavailable indicates the inference service is unreachable
	ErrServiceUnavailable = errors.New("inference service unavailable")

	// ErrInvalidPrediction indicates the prediction response is invalid
	ErrInvalidPrediction = errors.New("invalid prediction response")

	// ErrRaceNotFound indicates the service has no prediction for the race
	ErrRaceNotFound = errors.New("race prediction not found")
)
