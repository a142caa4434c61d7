// Package record collects periodic cluster-state samples during a run and
// exports them as CSV for offline analysis.
package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
)

// Row is one cluster-state sample at a simulated time.
type Row struct {
	Time           float64
	NbComputing    int
	NbIdle         int
	NbSleeping     int
	NbSwitchingOn  int
	NbSwitchingOff int
	RunningJobs    int
	WaitingJobs    int
	// UtilizationRate is computing hosts over total hosts, in percent.
	UtilizationRate float64
	// Power is the current platform power in watts, derived from
	// consumed-energy deltas; zero when energy monitoring is off.
	Power float64
}

// Recorder accumulates rows for one run. Each run carries a unique ID so
// exports from repeated runs can be told apart.
type Recorder struct {
	RunID string
	rows  []Row
}

// NewRecorder creates a Recorder with a fresh run ID.
func NewRecorder() *Recorder {
	return &Recorder{RunID: uuid.NewString()}
}

// Record appends one sample.
func (r *Recorder) Record(row Row) {
	r.rows = append(r.rows, row)
}

// Rows returns the recorded samples in order.
func (r *Recorder) Rows() []Row {
	return r.rows
}

var header = []string{
	"run_id", "time",
	"nb_computing", "nb_idle", "nb_sleeping", "nb_switching_on", "nb_switching_off",
	"running_jobs", "waiting_jobs", "utilization_rate", "power",
}

// WriteCSV writes all recorded rows with a header line.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing record header: %w", err)
	}
	for _, row := range r.rows {
		fields := []string{
			r.RunID,
			fmt.Sprintf("%.1f", row.Time),
			fmt.Sprintf("%d", row.NbComputing),
			fmt.Sprintf("%d", row.NbIdle),
			fmt.Sprintf("%d", row.NbSleeping),
			fmt.Sprintf("%d", row.NbSwitchingOn),
			fmt.Sprintf("%d", row.NbSwitchingOff),
			fmt.Sprintf("%d", row.RunningJobs),
			fmt.Sprintf("%d", row.WaitingJobs),
			fmt.Sprintf("%.2f", row.UtilizationRate),
			fmt.Sprintf("%.2f", row.Power),
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("writing record row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile exports the records to a CSV file at path.
func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating record export: %w", err)
	}
	defer f.Close()
	if err := r.WriteCSV(f); err != nil {
		return err
	}
	return f.Close()
}
