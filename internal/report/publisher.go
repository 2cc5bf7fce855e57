// SPDX-License-Identifier: MIT
package report

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pitchscope/internal/log"
)

// Publisher periodically snapshots a Source and sends the reading through a
// Transport. It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	source    Source        // The listener to poll.
	transport Transport     // Where readings go.
	interval  time.Duration // Time between readings.

	ticker   *time.Ticker   // Ticker that triggers readings.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	sequenceNum atomic.Uint32
}

// NewPublisher creates a Publisher. If the interval is invalid (<= 0) it
// defaults to 250ms.
func NewPublisher(interval time.Duration, source Source, transport Transport) (*Publisher, error) {
	if source == nil {
		return nil, fmt.Errorf("Publisher: source cannot be nil")
	}
	if transport == nil {
		return nil, fmt.Errorf("Publisher: transport cannot be nil")
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
		log.Warnf("Publisher: Invalid interval provided, defaulting to %s", interval)
	}
	return &Publisher{
		source:    source,
		transport: transport,
		interval:  interval,
	}, nil
}

// Start begins periodic publishing. Subsequent calls are no-ops while
// running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("Publisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Capture local variables for the goroutine to avoid data races on p.ticker/p.doneChan
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("Publisher: Goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.Publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. It is safe to call Stop multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("Publisher: Goroutine finished.")
	return nil
}

// Publish sends one reading immediately. The ticker calls it while running;
// callers may also use it after Stop for a final reading. Transport errors
// are logged and returned.
func (p *Publisher) Publish() error {
	r := Snapshot(p.source, p.sequenceNum.Add(1))
	if err := p.transport.Send(r); err != nil {
		log.Errorf("Publisher: Error sending reading %d: %v", r.Sequence, err)
		return err
	}
	return nil
}

// Close stops the publisher and closes its transport.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.transport.Close()
}

// Ensure Publisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*Publisher)(nil)
