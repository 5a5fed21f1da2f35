package internal

// DoneChan signals completion of an asynchronous stop by closing.
type DoneChan chan struct{}

// DoneFunc starts an asynchronous stop and returns the channel that
// signals its completion.
type DoneFunc func() DoneChan
