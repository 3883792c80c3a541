package llm

import "sync"

// Meter counts successful calls against a session quota. In-flight requests
// hold a reservation so overlapping sends cannot push the count past the quota.
type Meter struct {
	mu       sync.Mutex
	calls    int
	inFlight int
	quota    int
}

func NewMeter(quota int) *Meter {
	return &Meter{quota: quota}
}

// Reserve claims a slot for one request. It returns false when the quota is spent.
func (m *Meter) Reserve() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls+m.inFlight >= m.quota {
		return false
	}
	m.inFlight++
	return true
}

// Release returns a reservation, counting it only when the call succeeded.
func (m *Meter) Release(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	if success {
		m.calls++
	}
}

func (m *Meter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Meter) Quota() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quota
}

// SetQuota changes the limit for the rest of the session. The count is kept.
func (m *Meter) SetQuota(quota int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota = quota
}

func (m *Meter) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}
