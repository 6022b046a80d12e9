package posts

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/devshare/devshare/internal/models"
	"github.com/devshare/devshare/internal/notify"
	"github.com/devshare/devshare/internal/storage"
	"github.com/devshare/devshare/pkg/config"
	"github.com/devshare/devshare/pkg/logging"
)

// CancelFunc detaches a live query. Call it exactly once; after it returns no
// further callbacks fire.
type CancelFunc func()

// Watcher maintains push-based views over the store. Every subscription
// re-delivers the full, freshly ordered result set (never a diff) on
// subscribe and after each relevant change. Change signals coalesce: a burst
// of writes may produce a single delivery with the latest snapshot.
type Watcher struct {
	store  storage.Store
	cfg    config.PostsConfig
	logger *zap.Logger

	mu        sync.Mutex
	subs      map[uint64]*subscription
	nextID    uint64
	cancelBus func()
	closed    bool
}

type subscription struct {
	topics  map[string]struct{}
	kick    chan struct{} // buffered(1), coalesces change signals
	done    chan struct{}
	deliver func(ctx context.Context) error
	onError func(error)
}

// NewWatcher creates a watcher wired to a change bus
func NewWatcher(store storage.Store, bus notify.Bus, cfg config.PostsConfig) *Watcher {
	w := &Watcher{
		store:  store,
		cfg:    cfg,
		logger: logging.GetLogger().With(zap.String("component", "posts-watch")),
		subs:   make(map[uint64]*subscription),
	}
	w.cancelBus = bus.Subscribe(w.onChange)
	return w
}

// Close detaches from the bus and cancels every live subscription
func (w *Watcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	cancelBus := w.cancelBus
	subs := make([]*subscription, 0, len(w.subs))
	for _, s := range w.subs {
		subs = append(subs, s)
	}
	w.subs = make(map[uint64]*subscription)
	w.mu.Unlock()

	cancelBus()
	for _, s := range subs {
		close(s.done)
	}
}

// WatchByKind subscribes to all posts of one kind, created_at descending,
// capped at the configured page size.
func (w *Watcher) WatchByKind(kind models.PostKind, onData func([]*models.Post), onError func(error)) (CancelFunc, error) {
	if !kind.Valid() {
		return nil, ErrUnsupportedKind
	}
	return w.subscribe(
		[]string{topicKind(kind)},
		func(ctx context.Context) error {
			list, err := w.store.ListPostsByKind(ctx, kind, w.cfg.ListLimit)
			if err != nil {
				return err
			}
			onData(list)
			return nil
		},
		onError,
	), nil
}

// WatchPost subscribes to one document by id. onData receives nil when the
// document does not exist or is deleted while subscribed.
func (w *Watcher) WatchPost(id string, onData func(*models.Post), onError func(error)) CancelFunc {
	return w.subscribe(
		[]string{topicPost(id)},
		func(ctx context.Context) error {
			post, err := w.store.GetPost(ctx, id)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					onData(nil)
					return nil
				}
				return err
			}
			onData(post)
			return nil
		},
		onError,
	)
}

// WatchAnswers subscribes to the answers under a question, created_at
// ascending unless desc is requested, capped at the configured page size.
func (w *Watcher) WatchAnswers(postID string, order storage.Order, onData func([]*models.Answer), onError func(error)) CancelFunc {
	if order != storage.OrderDesc {
		order = storage.OrderAsc
	}
	return w.subscribe(
		[]string{topicAnswers(postID)},
		func(ctx context.Context) error {
			list, err := w.store.ListAnswers(ctx, postID, order, w.cfg.AnswerLimit)
			if err != nil {
				return err
			}
			onData(list)
			return nil
		},
		onError,
	)
}

func (w *Watcher) subscribe(topics []string, deliver func(ctx context.Context) error, onError func(error)) CancelFunc {
	sub := &subscription{
		topics:  make(map[string]struct{}, len(topics)),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		deliver: deliver,
		onError: onError,
	}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return func() {}
	}
	id := w.nextID
	w.nextID++
	w.subs[id] = sub
	w.mu.Unlock()

	go w.run(id, sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			_, live := w.subs[id]
			delete(w.subs, id)
			w.mu.Unlock()
			if live {
				close(sub.done)
			}
		})
	}
}

// run delivers the initial snapshot, then one fresh snapshot per coalesced
// change signal. All callbacks for a subscription fire sequentially from this
// goroutine. A fetch error is delivered once and terminates the subscription;
// the caller re-subscribes if desired.
func (w *Watcher) run(id uint64, sub *subscription) {
	ctx := context.Background()
	for {
		select {
		case <-sub.done:
			return
		default:
		}

		if err := sub.deliver(ctx); err != nil {
			w.mu.Lock()
			_, live := w.subs[id]
			delete(w.subs, id)
			w.mu.Unlock()
			if live {
				w.logger.Warn("watch terminated", zap.Error(err))
				if sub.onError != nil {
					sub.onError(err)
				}
			}
			return
		}

		select {
		case <-sub.kick:
		case <-sub.done:
			return
		}
	}
}

func (w *Watcher) onChange(topic string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subs {
		if _, ok := sub.topics[topic]; !ok {
			continue
		}
		select {
		case sub.kick <- struct{}{}:
		default: // a refresh is already pending
		}
	}
}
