package monitoring

import (
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

// A ProgressBar tracks a long-running job such as a replay. Counts may be
// updated from any goroutine.
type ProgressBar struct {
	id    string
	name  string
	start time.Time

	total    atomic.Uint64
	finished atomic.Uint64
}

// SetTotal changes the number of elements the job has.
func (b *ProgressBar) SetTotal(total uint64) {
	b.total.Store(total)
}

// SetFinished sets the number of finished elements.
func (b *ProgressBar) SetFinished(finished uint64) {
	b.finished.Store(finished)
}

// IncrementFinished adds amount to the finished elements.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.finished.Add(amount)
}

type progressRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	Percent    float64   `json:"percent"`
	ETASeconds float64   `json:"eta_seconds"`
}

func (b *ProgressBar) snapshot(now time.Time) progressRsp {
	rsp := progressRsp{
		ID:        b.id,
		Name:      b.name,
		StartTime: b.start,
		Total:     b.total.Load(),
		Finished:  b.finished.Load(),
	}

	if rsp.Total == 0 || rsp.Finished == 0 {
		return rsp
	}

	done := min(float64(rsp.Finished)/float64(rsp.Total), 1)
	rsp.Percent = 100 * done

	elapsed := now.Sub(b.start).Seconds()
	rsp.ETASeconds = elapsed/done - elapsed

	return rsp
}

// CreateProgressBar adds a bar to the page.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		id:    xid.New().String(),
		name:  name,
		start: time.Now(),
	}
	bar.total.Store(total)

	m.progressBarsLock.Lock()
	m.progressBars = append(m.progressBars, bar)
	m.progressBarsLock.Unlock()

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	for i, b := range m.progressBars {
		if b == pb {
			m.progressBars = append(m.progressBars[:i:i],
				m.progressBars[i+1:]...)
			return
		}
	}
}
