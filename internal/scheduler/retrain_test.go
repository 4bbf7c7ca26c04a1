package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/usecase"
)

type fakeTrainer struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTrainer) Train(ctx context.Context) (*usecase.TrainedModelSet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.TrainedModelSet{EpochID: "e1", BestModel: "ridge"}, nil
}

func TestParseSchedule(t *testing.T) {
	testCases := []struct {
		spec    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"@daily", false},
		{" 0 3 * * 1-5 ", false},
		{"", true},
		{"every day", true},
		{"0 0 3 * * *", true},
	}
	for _, tc := range testCases {
		t.Run(tc.spec, func(t *testing.T) {
			_, err := ParseSchedule(tc.spec)
			if (err != nil) != tc.wantErr {
				t.Errorf("ParseSchedule(%q) error = %v, wantErr %v", tc.spec, err, tc.wantErr)
			}
		})
	}
}

func TestRetrainer(t *testing.T) {
	t.Run("rejects a bad schedule", func(t *testing.T) {
		_, err := NewRetrainer("nope", &fakeTrainer{}, 0, zerolog.Nop())
		assert.Error(t, err)
	})

	t.Run("run once calls the trainer", func(t *testing.T) {
		for _, trainErr := range []error{nil, domain.ErrTrainingInProgress, errors.New("boom")} {
			trainer := &fakeTrainer{err: trainErr}
			r, err := NewRetrainer("@daily", trainer, time.Second, zerolog.Nop())
			require.NoError(t, err)
			r.RunOnce()
			assert.Equal(t, int32(1), trainer.calls.Load())
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		trainer := &fakeTrainer{}
		r, err := NewRetrainer("@hourly", trainer, time.Second, zerolog.Nop())
		require.NoError(t, err)

		r.Start()
		r.Start()
		assert.True(t, r.Next().After(time.Now()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, r.Stop(ctx))
		assert.NoError(t, r.Stop(ctx))
		assert.Equal(t, int32(0), trainer.calls.Load())
	})
}
