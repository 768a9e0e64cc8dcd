package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom,
// month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler periodically builds the shift digest and pushes it through a
// Notifier.
type Scheduler struct {
	db       *gorm.DB
	notifier Notifier
	plant    string
	spec     string
	window   time.Duration
	log      *zap.Logger
	runner   *cron.Cron
}

// NewScheduler wires a digest schedule. spec is a 5-field cron expression;
// window is how far back each digest looks.
func NewScheduler(db *gorm.DB, n Notifier, plant, spec string, window time.Duration, log *zap.Logger) (*Scheduler, error) {
	if _, err := cronParser.Parse(spec); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if window <= 0 {
		window = 8 * time.Hour
	}
	return &Scheduler{
		db:       db,
		notifier: n,
		plant:    plant,
		spec:     spec,
		window:   window,
		log:      log,
		runner:   cron.New(cron.WithParser(cronParser)),
	}, nil
}

// Start schedules the digest and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.runner.AddFunc(s.spec, func() { s.fire(ctx) }); err != nil {
		return err
	}
	s.runner.Start()
	s.log.Info("digest scheduler started", zap.String("spec", s.spec))

	<-ctx.Done()
	stopped := s.runner.Stop()
	<-stopped.Done()
	return nil
}

// fire builds and sends one digest. Errors are logged, not fatal; the
// schedule keeps running.
func (s *Scheduler) fire(ctx context.Context) {
	evt, err := BuildShiftDigest(s.db, s.plant, s.window)
	if err != nil {
		s.log.Error("digest build failed", zap.Error(err))
		return
	}
	if evt == nil {
		s.log.Debug("digest suppressed, no activity")
		return
	}
	if err := s.notifier.Send(ctx, *evt); err != nil {
		s.log.Error("digest send failed", zap.Error(err))
	}
}
