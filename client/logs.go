package client

import "context"

// LogService reads the caller's audit log.
type LogService struct {
	c *Client
}

// List returns the caller's audit entries, oldest first.
func (s *LogService) List(ctx context.Context) ([]LogEntry, error) {
	var entries []LogEntry
	if err := s.c.get(ctx, "/api/v1/task_logs", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
