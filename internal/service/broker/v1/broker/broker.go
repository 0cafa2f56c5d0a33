// Package broker provides workers draining the operation journal queue into storage.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/danilovkiri/dk-go-backstop/internal/models/modelqueue"
	"github.com/danilovkiri/dk-go-backstop/internal/storage/v1"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Broker struct {
	ctx          context.Context
	log          *zerolog.Logger
	queue        chan modelqueue.OperationQueueEntry
	storage      storage.Journal
	wg           *sync.WaitGroup
	workerNumber int
}

type JournalWorker struct {
	ID      int
	ctx     context.Context
	log     *zerolog.Logger
	queue   chan modelqueue.OperationQueueEntry
	storage storage.Journal
}

func InitBroker(ctx context.Context, queue chan modelqueue.OperationQueueEntry, st storage.Journal, log *zerolog.Logger, wg *sync.WaitGroup, workerNumber int) *Broker {
	broker := Broker{
		ctx:          ctx,
		log:          log,
		queue:        queue,
		storage:      st,
		wg:           wg,
		workerNumber: workerNumber,
	}
	return &broker
}

func (b *Broker) ListenAndProcess() {
	b.wg.Add(1)
	go func() {
		b.log.Info().Msg("started listening to the operation journal queue")
		defer b.wg.Done()
		g, _ := errgroup.WithContext(b.ctx)
		for i := 0; i < b.workerNumber; i++ {
			w := &JournalWorker{ID: i, ctx: b.ctx, queue: b.queue, storage: b.storage, log: b.log}
			g.Go(w.processAsync)
		}
		err := g.Wait()
		if err != nil {
			b.log.Fatal().Err(err).Msg("closing errgroup failed")
		}
		b.log.Info().Msg("stopped listening to the operation journal queue")
	}()
}

func (w *JournalWorker) processAsync() error {
	for {
		select {
		case <-w.ctx.Done():
			return nil
		case record, ok := <-w.queue:
			if !ok {
				return nil
			}
			err := w.storage.AddJournalRecord(context.Background(), record)
			if err != nil {
				// the journal is best-effort, a failed record must not stop the workers
				w.log.Warn().Err(err).Msg(fmt.Sprintf("WID %v, operation %v — could not persist journal record", w.ID, record.OperationID))
				continue
			}
			w.log.Info().Msg(fmt.Sprintf("WID %v, operation %v — journal record persisted", w.ID, record.OperationID))
		}
	}
}
