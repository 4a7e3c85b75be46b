package classifier

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/yaoapp/kun/log"

	"github.com/guardianbridge/guardianbridge/moderation/profile"
	"github.com/guardianbridge/guardianbridge/moderation/store"
)

// ShouldTrain reports whether a profile is due for training: enough
// samples, and either no model yet or the model older than the retrain
// interval.
func ShouldTrain(p *profile.Profile) (bool, error) {
	samples, err := store.Open(p.DBPath())
	if err != nil {
		return false, err
	}
	count, err := samples.Count()
	if err != nil {
		return false, err
	}
	if count < p.Settings.Training.MinSamples {
		return false, nil
	}

	if !p.ModelExists() {
		return true, nil
	}

	stat, err := os.Stat(p.ModelPath())
	if err != nil {
		return true, nil
	}
	age := time.Since(stat.ModTime())
	interval := time.Duration(p.Settings.Training.RetrainIntervalMinutes * float64(time.Minute))
	return age > interval, nil
}

// TrainAll train every due profile under base, one at a time. A failing
// profile is logged and does not stop the others.
func TrainAll(base string) {
	names, err := profile.List(base)
	if err != nil {
		log.Error("scheduler: list profiles: %s", err.Error())
		return
	}

	for _, name := range names {
		p, err := profile.Load(base, name)
		if err != nil {
			log.Error("scheduler: profile %s: %s", name, err.Error())
			continue
		}

		due, err := ShouldTrain(p)
		if err != nil {
			log.Error("scheduler: profile %s: %s", name, err.Error())
			continue
		}
		if !due {
			continue
		}

		if err := Train(p); err != nil && !errors.Is(err, ErrNotEnoughSamples) {
			log.Error("scheduler: profile %s training failed: %s", name, err.Error())
		}
	}
}

// Schedule run TrainAll on the interval until the context is cancelled
func Schedule(ctx context.Context, base string, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				TrainAll(base)
			}
		}
	}()
}
