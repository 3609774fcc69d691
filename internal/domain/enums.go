package domain

// JobStatus represents the extraction job lifecycle.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// EventStatus classifies progress stream events.
type EventStatus string

const (
	EventProgress  EventStatus = "progress"
	EventCompiling EventStatus = "compiling"
	EventComplete  EventStatus = "complete"
	EventError     EventStatus = "error"
	EventCancelled EventStatus = "cancelled"
)

// LocationRelation is the normalized on-site/off-site classification.
type LocationRelation string

const (
	LocationOnSite  LocationRelation = "On-Site"
	LocationOffSite LocationRelation = "Off-Site"
)

// ChunkStatus values recorded per chunk result.
const (
	ChunkStatusCompleted = "completed"
	ChunkStatusDegraded  = "degraded"
)
