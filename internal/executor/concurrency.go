package executor

// DefaultConcurrency is the default per-executor semaphore width.
const DefaultConcurrency = 2

// GlobalConcurrencyLimit is the process-wide permit ceiling available
// alongside any per-executor limiter (spec §4.3 middleware #5).
const GlobalConcurrencyLimit = 4

// Semaphore is a counting semaphore of N permits, implemented as a
// buffered channel.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a Semaphore with n permits. n <= 0 is clamped to 1.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		n = 1
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a permit is available.
func (s *Semaphore) Acquire() { s.slots <- struct{}{} }

// Release returns a permit to the pool.
func (s *Semaphore) Release() { <-s.slots }

// ConcurrencyMiddleware bounds concurrent calls to next() using sem, and
// optionally an additional global semaphore shared across executors.
func ConcurrencyMiddleware(sem, global *Semaphore) Middleware {
	return func(req Request, next Next, ctx *Context) (Result, error) {
		if global != nil {
			global.Acquire()
			defer global.Release()
		}
		if sem != nil {
			sem.Acquire()
			defer sem.Release()
		}
		return next(req, ctx)
	}
}
