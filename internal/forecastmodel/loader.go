package forecastmodel

import (
	"fmt"
	"stock-forecast/pkg/timeseries"
	"time"
)

// Loader turns an artifact file into a model value. The result is checked for
// the forecaster capabilities by the caller.
type Loader struct {
	cal           *timeseries.Calendar
	remoteTimeout time.Duration
}

func NewLoader(cal *timeseries.Calendar, remoteTimeout time.Duration) *Loader {
	return &Loader{cal: cal, remoteTimeout: remoteTimeout}
}

func (l *Loader) Load(path string) (any, error) {
	a, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	return l.Build(a)
}

func (l *Loader) Build(a *Artifact) (any, error) {
	switch a.Kind {
	case KindAdditive, "":
		return NewAdditiveModel(l.cal, a)
	case KindRemote:
		return NewRemoteModel(l.cal, a, l.remoteTimeout)
	default:
		return nil, fmt.Errorf("%q, %w", a.Kind, ErrUnknownKind)
	}
}
