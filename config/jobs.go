package config

import (
	"time"

	"github.com/spf13/viper"
)

// Worker worker pool config struct
type Worker struct {
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`
	QueueSize  int `json:"queue_size" yaml:"queue_size"`
}

// Jobs job lifecycle config struct
type Jobs struct {
	Retention          time.Duration `json:"retention" yaml:"retention"`
	ReapInterval       time.Duration `json:"reap_interval" yaml:"reap_interval"`
	PreparationTimeout time.Duration `json:"preparation_timeout" yaml:"preparation_timeout"`
	AskTimeout         time.Duration `json:"ask_timeout" yaml:"ask_timeout"`
	RecoverOnStart     bool          `json:"recover_on_start" yaml:"recover_on_start"`
	PollInterval       time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

func getWorkerConfig(v *viper.Viper) *Worker {
	return &Worker{
		MaxWorkers: getIntOrDefault(v, "worker.max_workers", 10),
		QueueSize:  getIntOrDefault(v, "worker.queue_size", 1000),
	}
}

func getJobsConfig(v *viper.Viper) *Jobs {
	return &Jobs{
		Retention:          getDurationOrDefault(v, "jobs.retention", 24*time.Hour),
		ReapInterval:       getDurationOrDefault(v, "jobs.reap_interval", 10*time.Minute),
		PreparationTimeout: getDurationOrDefault(v, "jobs.preparation_timeout", 0),
		AskTimeout:         getDurationOrDefault(v, "jobs.ask_timeout", 0),
		RecoverOnStart:     getBoolOrDefault(v, "jobs.recover_on_start", true),
		PollInterval:       getDurationOrDefault(v, "jobs.poll_interval", 200*time.Millisecond),
	}
}
