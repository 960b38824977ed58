package pulsekit

// channel based semaphore
// used to gate the single in-flight flush cycle
type semaphore chan struct{}

// acquire a slot, blocking
func (s semaphore) acquire() {
	s <- struct{}{}
}

// release a slot
func (s semaphore) release() {
	<-s
}
