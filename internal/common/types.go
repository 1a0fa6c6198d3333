package common

// Result is the outcome of a pooled download or decompression task
type Result interface {
	// Destination is the path of the file the task produced
	Destination() string
}
