package notify

import (
	"context"
	"fmt"
	"io"
	"time"
)

// LogChannel writes notifications as single timestamped lines, one per
// notification. It suits audit trails and local debugging.
type LogChannel struct {
	name   string
	writer io.Writer
	now    func() time.Time
}

// NewLogChannel builds a log channel writing to the given writer.
func NewLogChannel(name string, writer io.Writer) *LogChannel {
	return &LogChannel{name: name, writer: writer, now: time.Now}
}

func (c *LogChannel) Name() string {
	return c.name
}

func (c *LogChannel) Supports(priority Priority) bool {
	return true
}

// Send writes one line: UTC timestamp, priority, title, body.
func (c *LogChannel) Send(ctx context.Context, notification *Notification) error {
	timestamp := c.now().UTC().Format(time.RFC3339)
	_, err := fmt.Fprintf(c.writer, "[%s] [%s] %s: %s\n", timestamp, notification.Priority, notification.Title, notification.Body)
	if err != nil {
		return fmt.Errorf("write log notification: %w", err)
	}
	return nil
}
