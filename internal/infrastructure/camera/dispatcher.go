package camera

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errDispatcherReused = errors.New("контекст исполнения уже запускался")

// executor последовательный контекст исполнения с отложенными задачами
type executor interface {
	Start() error
	PostDelayed(delay time.Duration, task func())
	IsQuitting() bool
	Stop()
}

// dispatcher выполняет задачи по одной в собственной горутине.
// После Stop отложенные задачи отбрасываются.
type dispatcher struct {
	name string

	tasks    chan func()
	quit     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	quitting atomic.Bool
	quitOnce sync.Once

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func newDispatcher(name string) *dispatcher {
	return &dispatcher{
		name:   name,
		tasks:  make(chan func()),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
	}
}

// Start запускает цикл обработки задач. Контекст одноразовый.
func (d *dispatcher) Start() error {
	if d.quitting.Load() || !d.started.CompareAndSwap(false, true) {
		return errDispatcherReused
	}
	go d.run()
	return nil
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			return
		case task := <-d.tasks:
			task()
		}
	}
}

// PostDelayed ставит задачу в очередь через delay
func (d *dispatcher) PostDelayed(delay time.Duration, task func()) {
	if d.IsQuitting() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, timer)
		d.mu.Unlock()

		select {
		case d.tasks <- task:
		case <-d.quit:
		}
	})
	d.timers[timer] = struct{}{}
}

// IsQuitting сообщает, что контекст получил команду на завершение
func (d *dispatcher) IsQuitting() bool {
	return d.quitting.Load()
}

// Quit просит цикл завершиться, не дожидаясь его
func (d *dispatcher) Quit() {
	d.quitOnce.Do(func() {
		d.quitting.Store(true)
		close(d.quit)

		d.mu.Lock()
		for timer := range d.timers {
			timer.Stop()
		}
		d.timers = make(map[*time.Timer]struct{})
		d.mu.Unlock()
	})
}

// Stop завершает цикл и ждет выхода из текущей задачи.
// Нельзя вызывать из задачи, выполняемой этим же контекстом.
func (d *dispatcher) Stop() {
	d.Quit()
	if d.started.Load() {
		<-d.done
	}
}
