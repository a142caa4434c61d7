// Scheduling decision engine: FCFS with conservative backfilling, made
// energy-aware by waking sleeping hosts when idle capacity cannot satisfy
// the head job. One pass per event batch; reservations are re-derived from
// scratch every pass so that completions and kills observed in the batch
// can never leave a stale reservation behind.

package sched

import (
	"container/heap"
	"sort"

	"github.com/sirupsen/logrus"
)

// hostFreeTime projects when a host becomes allocatable.
type hostFreeTime struct {
	host int
	at   float64
}

// freeTimeHeap is a min-heap of projected host free times, tie-broken by
// host ID for determinism.
type freeTimeHeap []hostFreeTime

func (h freeTimeHeap) Len() int { return len(h) }
func (h freeTimeHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].host < h[j].host
}
func (h freeTimeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *freeTimeHeap) Push(x any) {
	*h = append(*h, x.(hostFreeTime))
}

func (h *freeTimeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// reservation commits the soonest-to-free hosts to the blocked head job.
// Backfill jobs may touch reserved hosts only if they provably finish
// before the reserved start.
type reservation struct {
	jobID string
	start float64
	hosts map[int]bool
}

// Engine runs one scheduling pass per batch over the pending queue.
type Engine struct {
	cluster *Cluster
	queue   *JobQueue
	policy  *EnergyPolicy

	// backfillWindow bounds how many queued jobs one pass considers.
	// <= 0 means the whole queue.
	backfillWindow int
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cluster *Cluster, queue *JobQueue, policy *EnergyPolicy, backfillWindow int) *Engine {
	return &Engine{cluster: cluster, queue: queue, policy: policy, backfillWindow: backfillWindow}
}

// Schedule walks the pending queue in order and emits allocation, rejection
// and wake decisions for the current timestamp. Jobs it cannot place remain
// pending for a later pass.
func (e *Engine) Schedule(now float64) ([]Decision, error) {
	var decisions []Decision
	free := e.cluster.AvailableHosts()
	total := e.cluster.Size()
	var res *reservation

	for _, job := range e.queue.NextCandidates(e.backfillWindow) {
		if job.Resources > total {
			if err := e.queue.MarkRejected(job.ID, ReasonInfeasibleRequest); err != nil {
				return nil, err
			}
			logrus.Infof("[t=%.1f] job %s rejected: requests %d hosts, cluster has %d", now, job.ID, job.Resources, total)
			decisions = append(decisions, RejectJob(now, job.ID, ReasonInfeasibleRequest))
			continue
		}

		if res == nil {
			if len(free) >= job.Resources {
				alloc := make([]int, job.Resources)
				copy(alloc, free[:job.Resources])
				free = free[job.Resources:]
				if err := e.place(now, job, alloc); err != nil {
					return nil, err
				}
				decisions = append(decisions, ExecuteJob(now, job.ID, alloc))
				continue
			}

			// Head job blocked. Wake sleeping capacity if hosts already on
			// their way up do not cover the shortfall, then reserve.
			deficit := job.Resources - len(free) - e.cluster.Snapshot().SwitchingOn
			if deficit > 0 {
				wake := e.policy.WakeCandidates(deficit, e.cluster)
				if len(wake) > 0 {
					for _, id := range wake {
						if err := e.cluster.RequestPowerOn(id); err != nil {
							return nil, err
						}
					}
					logrus.Infof("[t=%.1f] waking %d hosts for job %s: %v", now, len(wake), job.ID, wake)
					decisions = append(decisions, SetResourceState(now, wake, StateIdle))
				}
			}
			res = e.reserve(now, job, free)
			logrus.Debugf("[t=%.1f] job %s reserved %d hosts from t=%.1f", now, job.ID, len(res.hosts), res.start)
			continue
		}

		// Backfill mode: later jobs may run only if they cannot delay the
		// head job's reserved start.
		alloc := pickBackfill(now, job, free, res)
		if alloc == nil {
			continue
		}
		free = removeHosts(free, alloc)
		if err := e.place(now, job, alloc); err != nil {
			return nil, err
		}
		decisions = append(decisions, ExecuteJob(now, job.ID, alloc))
	}
	return decisions, nil
}

func (e *Engine) place(now float64, job *Job, alloc []int) error {
	if err := e.queue.MarkRunning(job.ID, alloc, now); err != nil {
		return err
	}
	e.cluster.Assign(job.ID, alloc)
	logrus.Infof("[t=%.1f] job %s executing on hosts %v", now, job.ID, alloc)
	return nil
}

// reserve projects the earliest feasible start for the blocked head job by
// popping the soonest-to-free hosts off a min-heap. Running hosts free at
// start + walltime; everything else is projected at now, which can only make
// the reservation start earlier and backfilling stricter, never unsafe.
func (e *Engine) reserve(now float64, job *Job, free []int) *reservation {
	freeAt := make(map[int]float64, e.cluster.Size())
	for _, h := range e.cluster.Hosts() {
		freeAt[h.ID] = now
	}
	for _, running := range e.queue.Running() {
		for _, id := range running.Allocation {
			freeAt[id] = running.StartTime + running.Walltime
		}
	}

	h := make(freeTimeHeap, 0, len(freeAt))
	for id, at := range freeAt {
		h = append(h, hostFreeTime{host: id, at: at})
	}
	heap.Init(&h)

	res := &reservation{jobID: job.ID, hosts: make(map[int]bool, job.Resources)}
	for i := 0; i < job.Resources; i++ {
		ft := heap.Pop(&h).(hostFreeTime)
		res.hosts[ft.host] = true
		if ft.at > res.start {
			res.start = ft.at
		}
	}
	return res
}

// pickBackfill selects hosts for a backfill candidate, preferring hosts
// outside the reservation and touching reserved hosts only when the job's
// projected finish precedes the reserved start. Returns nil if the job
// cannot run without risking the head job's start.
func pickBackfill(now float64, job *Job, free []int, res *reservation) []int {
	var unreserved, reserved []int
	for _, id := range free {
		if res.hosts[id] {
			reserved = append(reserved, id)
		} else {
			unreserved = append(unreserved, id)
		}
	}
	alloc := unreserved
	if len(alloc) < job.Resources && now+job.Walltime <= res.start {
		alloc = append(alloc, reserved...)
	}
	if len(alloc) < job.Resources {
		return nil
	}
	alloc = alloc[:job.Resources]
	sort.Ints(alloc)
	return alloc
}

func removeHosts(free []int, used []int) []int {
	usedSet := make(map[int]bool, len(used))
	for _, id := range used {
		usedSet[id] = true
	}
	out := free[:0]
	for _, id := range free {
		if !usedSet[id] {
			out = append(out, id)
		}
	}
	return out
}
