package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitTime string // last git commit time
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Status is the payload of GET /api/status.
type Status struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commitTime,omitempty"`
	BuildTime  string `json:"buildTime,omitempty"`
	StartTime  string `json:"startTime"`
	Uptime     string `json:"uptime"`
}

// Info describes the running binary.
func Info(service string, now time.Time) Status {
	s := Status{
		Service:    service,
		Version:    Version,
		Commit:     CommitHash,
		CommitTime: CommitTime,
		BuildTime:  BuildTime,
		StartTime:  StartTime,
	}
	if started, err := time.Parse(time.RFC3339, StartTime); err == nil {
		s.Uptime = now.Sub(started).Truncate(time.Second).String()
	}
	return s
}
