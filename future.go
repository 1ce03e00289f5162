package di

// resolveFuture holds the result of creating a Singleton or Scoped service.
// Result blocks until setResult has been called.
type resolveFuture struct {
	val  any
	err  error
	done chan struct{}
}

func newFuture() *resolveFuture {
	return &resolveFuture{
		done: make(chan struct{}),
	}
}

func (f *resolveFuture) setResult(val any, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

func (f *resolveFuture) Result() (any, error) {
	<-f.done
	return f.val, f.err
}
