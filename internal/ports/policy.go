package ports

import "time"

// Policy bounds the readout history buffer.
type Policy struct {
	MaxQueueLen   int           `yaml:"max_queue_len"`
	MaxBatchSize  int           `yaml:"max_batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	// IdleSleep is the retry pause for the "block" policy.
	IdleSleep time.Duration `yaml:"idle_sleep"`

	OnQueueFull string `yaml:"on_queue_full"` // "drop", "block"
}
