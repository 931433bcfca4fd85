package redis

const (
	// KeySnapshot holds the JSON-encoded last published snapshot
	KeySnapshot = "bestmirror:snapshot"
	// KeyLatency is a sorted set of origins scored by mean latency (seconds)
	KeyLatency = "bestmirror:latency"
)

// SnapshotKey returns the Redis key for the published snapshot
func SnapshotKey() string {
	return KeySnapshot
}

// LatencyKey returns the Redis key for the latency sorted set
func LatencyKey() string {
	return KeyLatency
}
