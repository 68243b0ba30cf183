package worker

import (
	"context"
	"log"
	"time"

	"leadflow/nurturing"
)

// NurtureWorker drives the nurturing engine on a fixed interval. Runs are
// serialized through the run lock so overlapping ticks (or a second
// process, with the Redis lock) never double-process an enrollment.
type NurtureWorker struct {
	Engine   *nurturing.Engine
	Lock     nurturing.RunLock
	Interval time.Duration
	Logger   *log.Logger
}

func NewNurtureWorker(engine *nurturing.Engine, lock nurturing.RunLock, interval time.Duration, logger *log.Logger) *NurtureWorker {
	return &NurtureWorker{
		Engine:   engine,
		Lock:     lock,
		Interval: interval,
		Logger:   logger,
	}
}

func (nw *NurtureWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	nw.Logger.Println("Nurture worker started")

	ticker := time.NewTicker(nw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			nw.Logger.Println("Nurture worker shutting down...")
			return
		case <-ticker.C:
			nw.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single nurturing cycle under the run lock.
func (nw *NurtureWorker) RunOnce(ctx context.Context) {
	acquired, err := nw.Lock.Acquire(ctx)
	if err != nil {
		nw.Logger.Printf("Failed to acquire run lock: %v", err)
		return
	}
	if !acquired {
		nw.Logger.Println("Previous nurture run still in progress, skipping cycle")
		return
	}
	defer nw.Lock.Release(ctx)

	report := nw.Engine.Run(ctx)
	nw.Logger.Printf("Nurture run finished: processed=%d enrolled=%d emails=%d tasks=%d exits=%d errors=%d",
		report.Processed,
		report.EnrollmentsCreated,
		report.EmailsSent,
		report.TasksCreated,
		report.Exits,
		len(report.Errors))
	for _, msg := range report.Errors {
		nw.Logger.Printf("Nurture run error: %s", msg)
	}
}
