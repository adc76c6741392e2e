package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	FilesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "files_created_total",
		Help:      "Inodes created since master start.",
	})
	FilesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "files_deleted_total",
		Help:      "Inodes deleted since master start.",
	})
	JournalRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "journal_records_total",
		Help:      "Records appended to the write-ahead log.",
	})
	WorkersLost = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "workers_lost_total",
		Help:      "Workers timed out or evicted on re-register.",
	})
	RecomputeLaunched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "recompute_launched_total",
		Help:      "Dependency recomputation commands launched.",
	})
	LostFiles = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tachyon",
		Subsystem: "master",
		Name:      "lost_files",
		Help:      "Files currently awaiting recomputation.",
	})
)

func init() {
	Registry.MustRegister(
		FilesCreated,
		FilesDeleted,
		JournalRecords,
		WorkersLost,
		RecomputeLaunched,
		LostFiles,
	)
}
