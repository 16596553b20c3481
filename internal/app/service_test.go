package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingService struct {
	name     string
	startErr error
	blocking bool

	mu      *sync.Mutex
	stopped *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(ctx context.Context) error {
	if s.blocking {
		<-ctx.Done()
		return nil
	}
	return s.startErr
}

func (s *recordingService) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.stopped = append(*s.stopped, s.name)
	return nil
}

func newRecorders(specs ...recordingService) ([]Service, *[]string) {
	var mu sync.Mutex
	stopped := []string{}
	services := make([]Service, 0, len(specs))
	for i := range specs {
		spec := specs[i]
		spec.mu = &mu
		spec.stopped = &stopped
		services = append(services, &spec)
	}
	return services, &stopped
}

func TestRunnerStopsInReverseOrderOnCancel(t *testing.T) {
	services, stopped := newRecorders(
		recordingService{name: "http", blocking: true},
		recordingService{name: "scheduler", blocking: true},
		recordingService{name: "queue", blocking: true},
	)
	runner := NewRunner(append(services, nil)...)
	assert.Equal(t, []string{"http", "scheduler", "queue"}, runner.Names())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx, time.Second, nil) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, []string{"queue", "scheduler", "http"}, *stopped)
}

func TestRunnerReturnsFailingServiceError(t *testing.T) {
	boom := errors.New("address already in use")
	services, stopped := newRecorders(
		recordingService{name: "http", startErr: boom},
		recordingService{name: "scheduler", blocking: true},
	)

	err := NewRunner(services...).Run(context.Background(), time.Second, nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "http")
	assert.ElementsMatch(t, []string{"scheduler", "http"}, *stopped)
}

func TestRunnerRequiresServices(t *testing.T) {
	assert.Error(t, NewRunner().Run(context.Background(), time.Second, nil))
	assert.Error(t, RunWithOptions(nil, Options{}))
}
